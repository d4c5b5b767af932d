package card

import (
	"time"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// UnnamedPlaceholder is shown in place of an empty credential name.
const UnnamedPlaceholder = "Unnamed credential"

// Busy carries the host-owned in-flight flags of a credential.
type Busy struct {
	Deleting        bool
	CheckingHealth  bool
	RefreshingToken bool
}

// Any reports whether any operation is in flight.
func (b Busy) Any() bool {
	return b.Deleting || b.CheckingHealth || b.RefreshingToken
}

// ActionKind names a user-activatable control on the card.
type ActionKind string

const (
	ActionToggle       ActionKind = "toggle"
	ActionEdit         ActionKind = "edit"
	ActionReset        ActionKind = "reset"
	ActionCheckHealth  ActionKind = "check"
	ActionRefreshToken ActionKind = "refresh"
	ActionDelete       ActionKind = "delete"
)

// Control is one rendered action control.
type Control struct {
	Action   ActionKind
	Label    string
	Icon     Icon
	Disabled bool
	Busy     bool // Renders a spinner instead of the static icon.
}

// FactKey identifies a fact row.
type FactKey string

const (
	FactEmail       FactKey = "email"
	FactRegion      FactKey = "region"
	FactBaseURL     FactKey = "base_url"
	FactExpire      FactKey = "expire"
	FactLastRefresh FactKey = "last_refresh"
)

// Fact is one optional labeled row in the card body.
type Fact struct {
	Key   FactKey
	Label string
	Value string
}

// View is the complete presentation of one credential card.
type View struct {
	ID          string
	ShortID     string
	DisplayName string
	Named       bool

	Healthy     bool
	HealthIcon  Icon
	HealthColor Color
	Muted       bool // De-emphasized rendering for disabled credentials.

	Badge   AuthTypeMeta
	Enabled bool
	Toggle  Control

	Facts      []Fact
	UsageCount string
	ErrorCount string
	LastError  string

	// Actions holds the footer controls in display order.
	Actions []Control
	Busy    Busy
}

// Control returns the control for an action, including the header toggle.
// The second result is false when the card does not offer that action.
func (v View) Control(action ActionKind) (Control, bool) {
	if action == ActionToggle {
		return v.Toggle, true
	}
	for _, c := range v.Actions {
		if c.Action == action {
			return c, true
		}
	}
	return Control{}, false
}

// Build derives the card view of a credential, formatting dates in the local
// time zone.
func Build(c model.Credential, busy Busy) View {
	return BuildIn(c, busy, time.Local)
}

// BuildIn derives the card view of a credential, formatting dates in loc.
func BuildIn(c model.Credential, busy Busy, loc *time.Location) View {
	authType := c.Data.ResolvedAuthType()
	healthy := DeriveHealth(c.IsDisabled, c.HealthStatus)

	v := View{
		ID:          c.ID,
		ShortID:     TruncateID(c.ID),
		DisplayName: c.Name,
		Named:       c.Name != "",
		Healthy:     healthy,
		HealthIcon:  IconCheckCircle,
		HealthColor: ColorGreen,
		Muted:       c.IsDisabled,
		Badge:       Classify(authType),
		Enabled:     !c.IsDisabled,
		Facts:       buildFacts(c.Data, loc),
		UsageCount:  formatCount(c.UsageCount),
		ErrorCount:  formatCount(c.ErrorCount),
		LastError:   c.LastError,
		Actions:     buildActions(authType, busy),
		Busy:        busy,
	}
	if !v.Named {
		v.DisplayName = UnnamedPlaceholder
	}
	if !healthy {
		v.HealthIcon = IconXCircle
		v.HealthColor = ColorRed
	}

	v.Toggle = Control{Action: ActionToggle, Label: "Enable", Icon: IconPower}
	if v.Enabled {
		v.Toggle.Label = "Disable"
	}

	return v
}

func buildFacts(d model.CredentialData, loc *time.Location) []Fact {
	facts := make([]Fact, 0, 5)
	if d.Email != "" {
		facts = append(facts, Fact{Key: FactEmail, Label: "Email", Value: d.Email})
	}
	if d.Region != "" {
		facts = append(facts, Fact{Key: FactRegion, Label: "Region", Value: d.Region})
	}
	if d.BaseURL != "" {
		facts = append(facts, Fact{Key: FactBaseURL, Label: "Base URL", Value: d.BaseURL})
	}
	if d.Expire != "" {
		facts = append(facts, Fact{Key: FactExpire, Label: "Expires", Value: FormatDisplayDateIn(d.Expire, loc)})
	}
	if d.LastRefresh != "" {
		facts = append(facts, Fact{Key: FactLastRefresh, Label: "Last refresh", Value: FormatDisplayDateIn(d.LastRefresh, loc)})
	}
	return facts
}

func buildActions(authType string, busy Busy) []Control {
	actions := []Control{
		{Action: ActionEdit, Label: "Edit", Icon: IconPencil},
		{Action: ActionReset, Label: "Reset", Icon: IconRotateCCW},
		{
			Action:   ActionCheckHealth,
			Label:    "Check",
			Icon:     IconActivity,
			Disabled: busy.CheckingHealth,
			Busy:     busy.CheckingHealth,
		},
	}

	if IsRefreshEligible(authType) {
		actions = append(actions, Control{
			Action:   ActionRefreshToken,
			Label:    "Refresh",
			Icon:     IconRefreshCW,
			Disabled: busy.RefreshingToken,
			Busy:     busy.RefreshingToken,
		})
	}

	return append(actions, Control{
		Action:   ActionDelete,
		Label:    "Delete",
		Icon:     IconTrash,
		Disabled: busy.Deleting,
	})
}
