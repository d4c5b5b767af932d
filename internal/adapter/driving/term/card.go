// Package term renders credential cards for terminal output.
package term

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/credpanel/internal/card"
)

var (
	cardBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b4252")).
			Padding(0, 1)

	mutedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2e3440")).
			Padding(0, 1).
			Faint(true)

	titleStyle = lipgloss.NewStyle().Bold(true)

	placeholderStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#9ba0bf"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#436b77")).Bold(true)

	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7d9da"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ba0bf"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75"))
)

var palette = map[card.Color]lipgloss.Color{
	card.ColorBlue:   lipgloss.Color("#61afef"),
	card.ColorPurple: lipgloss.Color("#c678dd"),
	card.ColorGreen:  lipgloss.Color("#98c379"),
	card.ColorYellow: lipgloss.Color("#e5c07b"),
	card.ColorOrange: lipgloss.Color("#d19a66"),
	card.ColorGray:   lipgloss.Color("#abb2bf"),
	card.ColorRed:    lipgloss.Color("#e06c75"),
}

var symbols = map[card.Icon]string{
	card.IconKey:         "⚿",
	card.IconTerminal:    ">_",
	card.IconBuilding:    "▦",
	card.IconLock:        "🔒",
	card.IconCloud:       "☁",
	card.IconServer:      "▤",
	card.IconCheckCircle: "✔",
	card.IconXCircle:     "✘",
	card.IconPencil:      "✎",
	card.IconRotateCCW:   "↺",
	card.IconActivity:    "∿",
	card.IconRefreshCW:   "↻",
	card.IconTrash:       "✖",
	card.IconPower:       "⏻",
}

// busySymbol replaces the icon of a control whose operation is in flight.
const busySymbol = "…"

const (
	minCardWidth = 36
	maxCardWidth = 72
)

func colorOf(c card.Color) lipgloss.Color {
	if lc, ok := palette[c]; ok {
		return lc
	}
	return palette[card.ColorNeutral]
}

func symbolOf(i card.Icon) string {
	if s, ok := symbols[i]; ok {
		return s
	}
	return "•"
}

func cardWidth(width int) int {
	if width <= 0 {
		return maxCardWidth
	}
	w := width - 2
	if w < minCardWidth {
		w = minCardWidth
	}
	if w > maxCardWidth {
		w = maxCardWidth
	}
	return w
}

// RenderCard renders one credential card inside a bordered box no wider than
// width terminal columns. A width of zero uses the maximum card width.
func RenderCard(v card.View, width int) string {
	w := cardWidth(width)
	inner := w - 4

	var b strings.Builder
	b.WriteString(header(v, inner))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(v.ShortID))

	for _, f := range v.Facts {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(f.Label+": ") + valueStyle.Render(clamp(f.Value, inner-len(f.Label)-2)))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("usage ") + valueStyle.Render(v.UsageCount))
	b.WriteString(dimStyle.Render("  errors ") + valueStyle.Render(v.ErrorCount))

	if v.LastError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(clamp(v.LastError, inner)))
	}

	b.WriteString("\n")
	b.WriteString(footer(v))

	style := cardBorder
	if v.Muted {
		style = mutedBorder
	}
	return style.Width(w).Render(b.String())
}

// RenderList renders every card separated by a blank line, or a hint when
// there are none.
func RenderList(views []card.View, width int) string {
	if len(views) == 0 {
		return dimStyle.Render("No credentials yet.")
	}
	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, RenderCard(v, width))
	}
	return strings.Join(parts, "\n\n")
}

func header(v card.View, inner int) string {
	health := lipgloss.NewStyle().Foreground(colorOf(v.HealthColor)).Render(symbolOf(v.HealthIcon))

	badgeText := fmt.Sprintf("%s %s", symbolOf(v.Badge.Icon), v.Badge.Label)
	badge := lipgloss.NewStyle().Foreground(colorOf(v.Badge.Color)).Render(badgeText)

	toggle := "off"
	if v.Enabled {
		toggle = "on"
	}
	if v.Toggle.Disabled {
		toggle = busySymbol
	}
	state := dimStyle.Render("[" + toggle + "]")

	nameWidth := inner - lipgloss.Width(health) - lipgloss.Width(badge) - lipgloss.Width(state) - 3
	var name string
	if v.Named {
		name = titleStyle.Render(clamp(v.DisplayName, nameWidth))
	} else {
		name = placeholderStyle.Render(clamp(v.DisplayName, nameWidth))
	}

	return strings.Join([]string{health, name, badge, state}, " ")
}

func footer(v card.View) string {
	parts := make([]string, 0, len(v.Actions))
	for _, c := range v.Actions {
		sym := symbolOf(c.Icon)
		if c.Busy {
			sym = busySymbol
		}
		text := sym + " " + string(c.Action)
		if c.Disabled {
			parts = append(parts, dimStyle.Strikethrough(true).Render(text))
			continue
		}
		parts = append(parts, valueStyle.Render(text))
	}
	return strings.Join(parts, dimStyle.Render(" · "))
}

// clamp shortens s to max runes, marking the cut with card.Ellipsis.
func clamp(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= len(card.Ellipsis) {
		return truncateRunes(s, max)
	}
	return truncateRunes(s, max-len(card.Ellipsis)) + card.Ellipsis
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	b.Grow(max)
	n := 0
	for _, r := range s {
		if n >= max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
