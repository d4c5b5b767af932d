package card

// Actions is the capability handle a host passes to a card renderer. Each
// method requests one operation on the card's credential; the host performs
// it and reports failures through its own channels.
type Actions interface {
	Toggle()
	Delete()
	Reset()
	CheckHealth()
	RefreshToken()
	Edit()
}

// Activate invokes the Actions method bound to a user-activated control.
// It does nothing and returns false when the view does not offer the control
// or the control is disabled, so a busy control cannot be triggered twice.
func Activate(v View, action ActionKind, actions Actions) bool {
	ctrl, ok := v.Control(action)
	if !ok || ctrl.Disabled {
		return false
	}

	switch action {
	case ActionToggle:
		actions.Toggle()
	case ActionEdit:
		actions.Edit()
	case ActionReset:
		actions.Reset()
	case ActionCheckHealth:
		actions.CheckHealth()
	case ActionRefreshToken:
		actions.RefreshToken()
	case ActionDelete:
		actions.Delete()
	default:
		return false
	}
	return true
}

// ParseAction maps a URL or CLI action name to an ActionKind.
func ParseAction(s string) (ActionKind, bool) {
	switch a := ActionKind(s); a {
	case ActionToggle, ActionEdit, ActionReset, ActionCheckHealth, ActionRefreshToken, ActionDelete:
		return a, true
	default:
		return "", false
	}
}
