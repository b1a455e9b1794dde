package events

import (
	"fmt"
	"hash/fnv"
)

// coverPalette holds the gradient stops events without a cover image
// draw from. Order matters: the hash indexes into it.
var coverPalette = []string{
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#f59e0b", // amber
	"#10b981", // emerald
	"#06b6d4", // cyan
	"#ef4444", // red
	"#3b82f6", // blue
}

// CoverPattern is a deterministic fallback cover: the same event always
// renders the same gradient on every device.
type CoverPattern struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Angle int    `json:"angle"`
}

// CSS renders the pattern as a CSS linear-gradient value.
func (p CoverPattern) CSS() string {
	return fmt.Sprintf("linear-gradient(%ddeg, %s, %s)", p.Angle, p.From, p.To)
}

// CoverPatternFor derives the fallback cover gradient from the event id.
func CoverPatternFor(eventID string) CoverPattern {
	h := fnv.New32a()
	h.Write([]byte(eventID))
	sum := h.Sum32()

	from := int(sum % uint32(len(coverPalette)))
	to := int((sum >> 8) % uint32(len(coverPalette)))
	if to == from {
		to = (to + 1) % len(coverPalette)
	}
	return CoverPattern{
		From:  coverPalette[from],
		To:    coverPalette[to],
		Angle: int((sum >> 16) % 360),
	}
}
