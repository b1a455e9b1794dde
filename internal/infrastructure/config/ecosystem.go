package config

import "fmt"

// EcosystemApp describes one sibling application sharing the
// single-sign-on session.
type EcosystemApp struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Subdomain   string `json:"subdomain"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// EcosystemApps is the registry of sibling ecosystem applications.
var EcosystemApps = []EcosystemApp{
	{ID: "note", Label: "Note", Subdomain: "app", Type: "app", Description: "Cognitive extension and smart notes."},
	{ID: "vault", Label: "Vault", Subdomain: "vault", Type: "app", Description: "Secure vault and identity vault."},
	{ID: "flow", Label: "Flow", Subdomain: "flow", Type: "app", Description: "Intelligent task orchestration."},
	{ID: "connect", Label: "Connect", Subdomain: "connect", Type: "app", Description: "Secure bridge for communication."},
	{ID: "id", Label: "Identity", Subdomain: "id", Type: "accounts", Description: "Sovereign identity management."},
}

// EcosystemURL builds the URL of a sibling app on the configured domain.
func (cfg *AuthConfig) EcosystemURL(subdomain string) string {
	if subdomain == "" {
		return "#"
	}
	return fmt.Sprintf("https://%s.%s", subdomain, cfg.Domain)
}
