package tradelist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var palette = map[Color]lipgloss.Color{
	ColorEmerald: lipgloss.Color("#10B981"),
	ColorRed:     lipgloss.Color("#EF4444"),
	ColorBlue:    lipgloss.Color("#3B82F6"),
	ColorGreen:   lipgloss.Color("#22C55E"),
	ColorGray:    lipgloss.Color("#6B7280"),
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	dialogStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 1)
)

func colored(c Color) lipgloss.Style {
	fg, ok := palette[c]
	if !ok {
		fg = palette[ColorGray]
	}
	return lipgloss.NewStyle().Foreground(fg).Bold(true)
}

// Render renders the trade list for a terminal
func Render(view View) string {
	var sb strings.Builder

	title := "Recent Trades"
	if view.Total > len(view.Rows) {
		title = fmt.Sprintf("Recent Trades (latest %d of %d)", len(view.Rows), view.Total)
	}
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")

	if len(view.Rows) == 0 {
		sb.WriteString(mutedStyle.Render("No trades yet"))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, row := range view.Rows {
		sb.WriteString(renderRow(row, view.ShowAccount))
		sb.WriteString("\n")
		for _, o := range row.RelatedOrders {
			sb.WriteString("    ")
			sb.WriteString(colored(o.Color).Render(string(o.Kind)))
			sb.WriteString(mutedStyle.Render(fmt.Sprintf(" @ %s  qty %s", o.Price, o.Quantity)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderRow(row Row, showAccount bool) string {
	parts := []string{mutedStyle.Render(row.Time)}
	if showAccount {
		label := row.Account
		if row.Logo != "" {
			label = row.Logo + " " + label
		}
		parts = append(parts, label)
	}
	parts = append(parts,
		row.Symbol,
		colored(row.SideColor).Render(row.Side),
		"price "+row.Price,
		"qty "+row.Quantity,
		"notional "+row.Notional,
	)
	if row.TriggerBadge != "" {
		parts = append(parts, badgeStyle.Render("["+row.TriggerBadge+"]"))
	}
	if row.PromptBadge != "" {
		parts = append(parts, promptStyle.Render("["+row.PromptBadge+"]"))
	}
	return strings.Join(parts, "  ")
}

// RenderDialog renders the sync confirmation prompt when it is open, and
// the last sync result otherwise
func RenderDialog(d *SyncDialog, accountName string) string {
	if d.IsOpen() {
		return dialogStyle.Render(fmt.Sprintf("Sync realized PnL for %s from the exchange? [y/N]", accountName))
	}
	if msg := d.Result(); msg != "" {
		return resultStyle.Render(msg)
	}
	return ""
}
