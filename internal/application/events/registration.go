package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// avatarWorkers caps concurrent identity lookups per attendee list.
const avatarWorkers = 4

// Service drives the public event pages: lookup, registration and the
// attendee list.
type Service struct {
	events   ports.EventAPI
	guests   ports.GuestAPI
	identity ports.IdentityAPI
	logger   *logger.Logger
}

func NewService(events ports.EventAPI, guests ports.GuestAPI, identity ports.IdentityAPI, appLogger *logger.Logger) *Service {
	return &Service{
		events:   events,
		guests:   guests,
		identity: identity,
		logger:   appLogger.WithComponent("events"),
	}
}

// GetEvent returns the event when the viewer may see it. A missing row,
// a backend rejection and a private event all collapse into the same
// ErrEventUnavailable: a viewer cannot distinguish "private" from
// "gone".
func (s *Service) GetEvent(ctx context.Context, viewerID, id string) (*entities.Event, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, entities.ErrEventNotFound) || errors.Is(err, entities.ErrUnauthorized) {
			return nil, entities.ErrEventUnavailable
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.VisibleTo(viewerID) {
		return nil, entities.ErrEventUnavailable
	}
	return event, nil
}

// Registration is the viewer's standing on an event.
type Registration struct {
	Registered bool
	GuestID    string
}

// RegistrationFor looks up the viewer's guest row for the event.
func (s *Service) RegistrationFor(ctx context.Context, eventID, userID string) (Registration, error) {
	rows, err := s.guests.List(ctx,
		ports.Equal("eventId", eventID),
		ports.Equal("userId", userID),
	)
	if err != nil {
		return Registration{}, fmt.Errorf("list guest rows: %w", err)
	}
	if len(rows) == 0 {
		return Registration{}, nil
	}
	return Registration{Registered: true, GuestID: rows[0].ID}, nil
}

// Register adds the user to the event's guest list. Registering twice
// is rejected before any row is written, so retries and double-clicks
// cannot duplicate the (event, user) pair.
func (s *Service) Register(ctx context.Context, event *entities.Event, user *entities.User) (*entities.EventGuest, error) {
	existing, err := s.RegistrationFor(ctx, event.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing.Registered {
		return nil, entities.ErrAlreadyRegistered
	}

	guest, err := s.guests.Create(ctx, &entities.EventGuest{
		EventID: event.ID,
		UserID:  user.ID,
		Email:   user.Email,
		Status:  entities.GuestStatusAccepted,
		Role:    entities.GuestRoleAttendee,
	})
	if err != nil {
		return nil, fmt.Errorf("register guest: %w", err)
	}

	s.logger.Infow("User registered for event", "event_id", event.ID, "user_id", user.ID)
	return guest, nil
}

// CancelRegistration removes the viewer's guest row. Cancelling when
// not registered is a no-op.
func (s *Service) CancelRegistration(ctx context.Context, eventID, userID string) error {
	reg, err := s.RegistrationFor(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !reg.Registered {
		return nil
	}
	if err := s.guests.Delete(ctx, reg.GuestID); err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	s.logger.Infow("Registration cancelled", "event_id", eventID, "user_id", userID)
	return nil
}

// Attendee is a guest row decorated for display.
type Attendee struct {
	Guest     *entities.EventGuest
	Name      string
	AvatarURL string
	Initials  string
}

// Attendees lists the event's guests and resolves each one's display
// identity concurrently. A lookup that fails or finds nobody degrades
// to initials; only context cancellation aborts the whole list.
func (s *Service) Attendees(ctx context.Context, eventID string) ([]Attendee, error) {
	rows, err := s.guests.List(ctx, ports.Equal("eventId", eventID))
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}

	attendees := make([]Attendee, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(avatarWorkers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			attendees[i] = s.resolveAttendee(ctx, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attendees, nil
}

func (s *Service) resolveAttendee(ctx context.Context, guest *entities.EventGuest) Attendee {
	a := Attendee{
		Guest:    guest,
		Name:     guest.Email,
		Initials: initialsOf(guest.Email),
	}
	if guest.Email == "" {
		a.Initials = "?"
		return a
	}

	users, err := s.identity.SearchUsers(ctx, guest.Email, 1)
	if err != nil || len(users) == 0 {
		if err != nil {
			s.logger.Debugw("Attendee lookup failed", "email", guest.Email, "error", err)
		}
		return a
	}

	user := users[0]
	if user.Name != "" {
		a.Name = user.Name
		a.Initials = initialsOf(user.Name)
	}
	if user.ProfilePicID != "" {
		a.AvatarURL = s.identity.ProfilePreviewURL(user.ProfilePicID, 64, 64)
	}
	return a
}

// initialsOf derives up to two uppercase initials from a name or email.
func initialsOf(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '.' || r == '_' || r == '-'
	})
	switch len(parts) {
	case 0:
		return firstRuneUpper(name)
	case 1:
		return firstRuneUpper(parts[0])
	default:
		return firstRuneUpper(parts[0]) + firstRuneUpper(parts[len(parts)-1])
	}
}

// firstRuneUpper takes the leading rune, not byte, so multibyte names
// keep a valid initial.
func firstRuneUpper(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return "?"
	}
	return strings.ToUpper(string(r))
}
