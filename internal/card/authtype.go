package card

import "github.com/ericfisherdev/credpanel/internal/domain/model"

// Icon identifies a glyph. Renderers map it to an SVG icon or a terminal symbol.
type Icon string

const (
	IconKey         Icon = "key"
	IconTerminal    Icon = "terminal"
	IconBuilding    Icon = "building"
	IconLock        Icon = "lock"
	IconCloud       Icon = "cloud"
	IconServer      Icon = "server"
	IconCheckCircle Icon = "check-circle"
	IconXCircle     Icon = "x-circle"
	IconPencil      Icon = "pencil"
	IconRotateCCW   Icon = "rotate-ccw"
	IconActivity    Icon = "activity"
	IconRefreshCW   Icon = "refresh-cw"
	IconTrash       Icon = "trash"
	IconPower       Icon = "power"
)

// Color is a renderer-neutral color token.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorGray   Color = "gray"
	ColorRed    Color = "red"

	// ColorNeutral is used for auth types outside the known table.
	ColorNeutral = ColorGray
)

// AuthTypeMeta is the badge presentation of an auth type. Known is false for
// keys outside the fixed table; Label then carries the raw key verbatim.
type AuthTypeMeta struct {
	Type  model.AuthType
	Known bool
	Label string
	Icon  Icon
	Color Color
}

type authTypeStyle struct {
	label string
	icon  Icon
	color Color
}

var authTypeTable = map[model.AuthType]authTypeStyle{
	model.AuthTypeOAuth:      {label: "OAuth", icon: IconKey, color: ColorBlue},
	model.AuthTypeClaudeCode: {label: "Claude Code", icon: IconTerminal, color: ColorPurple},
	model.AuthTypeConsole:    {label: "Console", icon: IconBuilding, color: ColorGreen},
	model.AuthTypeSetupToken: {label: "Setup Token", icon: IconLock, color: ColorYellow},
	model.AuthTypeBedrock:    {label: "Bedrock", icon: IconCloud, color: ColorOrange},
	model.AuthTypeCCR:        {label: "CCR", icon: IconServer, color: ColorGray},
}

// Classify maps a raw auth type key to its badge. An empty key is treated as
// oauth. Unknown keys fall back to the OAuth icon, a neutral color and the raw
// key as label.
func Classify(authType string) AuthTypeMeta {
	if authType == "" {
		authType = string(model.AuthTypeOAuth)
	}

	at := model.AuthType(authType)
	style, ok := authTypeTable[at]
	if !ok {
		return AuthTypeMeta{
			Type:  at,
			Known: false,
			Label: authType,
			Icon:  authTypeTable[model.AuthTypeOAuth].icon,
			Color: ColorNeutral,
		}
	}

	return AuthTypeMeta{
		Type:  at,
		Known: true,
		Label: style.label,
		Icon:  style.icon,
		Color: style.color,
	}
}
