// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

import "github.com/ericfisherdev/credpanel/internal/card"

// DashboardViewModel holds presentation-ready data for the credential dashboard.
type DashboardViewModel struct {
	Cards []card.View

	Total   int
	Enabled int
	Healthy int

	AuthTypes []AuthTypeOption
	CSRFToken string
}

// AuthTypeOption is one entry of the "new credential" picker.
type AuthTypeOption struct {
	Key   string
	Label string
	Icon  card.Icon
	Color card.Color
}

// EditFormViewModel holds the editable fields of an existing credential.
type EditFormViewModel struct {
	ID          string
	DisplayName string
	Badge       card.AuthTypeMeta

	Name    string
	Email   string
	Region  string
	BaseURL string

	ShowRegion  bool // Bedrock only.
	ShowBaseURL bool // CCR only.

	Error     string
	CSRFToken string
}

// NewFormViewModel holds the creation form for one auth type.
type NewFormViewModel struct {
	AuthType string
	Badge    card.AuthTypeMeta
	HelpHTML string // Sanitized HTML rendered from the catalog markdown.

	// Inputs shown for this auth type.
	ShowAccessToken  bool
	ShowRefreshToken bool
	ShowAWSKeys      bool
	ShowAPIKey       bool
	ShowRegion       bool
	ShowBaseURL      bool
	ShowOrgName      bool

	Name             string
	Email            string
	Region           string
	BaseURL          string
	OrganizationName string
	Error            string
	CSRFToken        string
}
