// Package templates holds the templ components of the web GUI: the page
// layout, the dashboard, the credential card, its icons and the forms.
package templates

//go:generate go tool templ generate

import (
	"net/url"

	"github.com/ericfisherdev/credpanel/internal/card"
)

const (
	// NewFormSlotID is the element the "new credential" form is loaded into.
	NewFormSlotID = "new-credential"

	// CSRFFormField is the form field carrying the CSRF token for non-htmx submits.
	CSRFFormField = "csrf_token"

	// busyPollInterval is how often a card with an in-flight operation re-fetches itself.
	busyPollInterval = "every 1s"
)

// CredentialPath returns the path of a credential resource below /app.
func CredentialPath(id string, suffix ...string) string {
	p := "/app/credentials/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// CardDOMID is the element id of a rendered credential card.
func CardDOMID(id string) string {
	return "credential-" + id
}

func cardTarget(id string) string {
	return "#" + CardDOMID(id)
}

func actionPath(id string, c card.Control) string {
	return CredentialPath(id, string(c.Action))
}

func deleteConfirm(v card.View) string {
	return "Delete " + v.DisplayName + "?"
}

func healthTitle(healthy bool) string {
	if healthy {
		return "Healthy"
	}
	return "Unhealthy"
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Lucide icon bodies (24x24 viewBox, stroke based).
var iconPaths = map[card.Icon]string{
	card.IconKey:         `<circle cx="7.5" cy="15.5" r="5.5"/><path d="m21 2-9.6 9.6"/><path d="m15.5 7.5 3 3L22 7l-3-3"/>`,
	card.IconTerminal:    `<polyline points="4 17 10 11 4 5"/><line x1="12" x2="20" y1="19" y2="19"/>`,
	card.IconBuilding:    `<rect width="16" height="20" x="4" y="2" rx="2" ry="2"/><path d="M9 22v-4h6v4"/><path d="M8 6h.01"/><path d="M16 6h.01"/><path d="M12 6h.01"/><path d="M12 10h.01"/><path d="M12 14h.01"/><path d="M16 10h.01"/><path d="M16 14h.01"/><path d="M8 10h.01"/><path d="M8 14h.01"/>`,
	card.IconLock:        `<rect width="18" height="11" x="3" y="11" rx="2" ry="2"/><path d="M7 11V7a5 5 0 0 1 10 0v4"/>`,
	card.IconCloud:       `<path d="M17.5 19H9a7 7 0 1 1 6.71-9h1.79a4.5 4.5 0 1 1 0 9Z"/>`,
	card.IconServer:      `<rect width="20" height="8" x="2" y="2" rx="2" ry="2"/><rect width="20" height="8" x="2" y="14" rx="2" ry="2"/><line x1="6" x2="6.01" y1="6" y2="6"/><line x1="6" x2="6.01" y1="18" y2="18"/>`,
	card.IconCheckCircle: `<path d="M22 11.08V12a10 10 0 1 1-5.93-9.14"/><path d="m9 11 3 3L22 4"/>`,
	card.IconXCircle:     `<circle cx="12" cy="12" r="10"/><path d="m15 9-6 6"/><path d="m9 9 6 6"/>`,
	card.IconPencil:      `<path d="M17 3a2.85 2.83 0 1 1 4 4L7.5 20.5 2 22l1.5-5.5Z"/><path d="m15 5 4 4"/>`,
	card.IconRotateCCW:   `<path d="M3 12a9 9 0 1 0 9-9 9.75 9.75 0 0 0-6.74 2.74L3 8"/><path d="M3 3v5h5"/>`,
	card.IconActivity:    `<path d="M22 12h-4l-3 9L9 3l-3 9H2"/>`,
	card.IconRefreshCW:   `<path d="M3 12a9 9 0 0 1 9-9 9.75 9.75 0 0 1 6.74 2.74L21 8"/><path d="M21 3v5h-5"/><path d="M21 12a9 9 0 0 1-9 9 9.75 9.75 0 0 1-6.74-2.74L3 16"/><path d="M8 16H3v5"/>`,
	card.IconTrash:       `<path d="M3 6h18"/><path d="M19 6v14c0 1-1 2-2 2H7c-1 0-2-1-2-2V6"/><path d="M8 6V4c0-1 1-2 2-2h4c1 0 2 1 2 2v2"/>`,
	card.IconPower:       `<path d="M12 2v10"/><path d="M18.4 6.6a9 9 0 1 1-12.77.04"/>`,
}

const spinnerPath = `<path d="M21 12a9 9 0 1 1-6.219-8.56"/>`

// iconBody returns the SVG body of an icon. Unknown icons fall back to the key glyph.
func iconBody(icon card.Icon) string {
	if body, ok := iconPaths[icon]; ok {
		return body
	}
	return iconPaths[card.IconKey]
}
