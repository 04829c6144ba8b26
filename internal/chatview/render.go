// Package chatview renders chat session state for a terminal.
package chatview

import (
	"fmt"
	"strings"

	"github.com/Cyvadra/signal-desk/internal/chat"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
	"github.com/charmbracelet/lipgloss"
)

const resultPreviewLength = 120

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	statusStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#6B7280"))

	toolCallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	invalidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// Message renders one chat message. Streaming messages show their status
// and analysis log below the content.
func Message(msg models.Message) string {
	var sb strings.Builder
	if msg.Role == models.RoleUser {
		sb.WriteString(userStyle.Render("You"))
	} else {
		sb.WriteString(assistantStyle.Render("Assistant"))
	}
	sb.WriteString("\n")

	if msg.Content != "" {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	if !msg.IsStreaming {
		return sb.String()
	}

	for _, entry := range msg.AnalysisLog {
		switch entry.Type {
		case models.AnalysisReasoning:
			sb.WriteString(reasoningStyle.Render("  thinking: " + entry.Content))
		case models.AnalysisToolCall:
			sb.WriteString(toolCallStyle.Render(fmt.Sprintf("  -> %s(%s)", entry.Name, entry.Arguments)))
		case models.AnalysisToolResult:
			sb.WriteString(toolCallStyle.Render(fmt.Sprintf("  <- %s: %s", entry.Name, truncate(entry.Result, resultPreviewLength))))
		}
		sb.WriteString("\n")
	}
	if msg.StatusText != "" {
		sb.WriteString(statusStyle.Render("  " + msg.StatusText))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Transcript renders every message of the session
func Transcript(state chat.State) string {
	if len(state.Messages) == 0 {
		return mutedStyle.Render("No messages yet. Describe a signal, e.g. BTCUSDT oi_delta > 2 over 5m") + "\n"
	}

	parts := make([]string, 0, len(state.Messages))
	for _, msg := range state.Messages {
		parts = append(parts, Message(msg))
	}
	return strings.Join(parts, "\n")
}

// Cards renders the proposed config cards
func Cards(cards []signals.Card) string {
	if len(cards) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, card := range cards {
		var body strings.Builder
		body.WriteString(fmt.Sprintf("[%d] %s", card.Index+1, card.Title))
		switch {
		case card.Created:
			body.WriteString("  " + createdStyle.Render("created"))
		case card.Creating:
			body.WriteString("  " + statusStyle.Render("creating..."))
		case !card.Valid:
			body.WriteString("  " + invalidStyle.Render("incomplete"))
		}
		for _, cond := range card.Conditions {
			body.WriteString("\n  " + cond)
		}
		if card.Config.Description != "" {
			body.WriteString("\n" + mutedStyle.Render(card.Config.Description))
		}
		sb.WriteString(cardStyle.Render(body.String()))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Preview renders a single config in detail
func Preview(cfg models.SignalConfig) string {
	var sb strings.Builder
	name := cfg.Name
	if name == "" {
		name = "Untitled"
	}
	sb.WriteString(selectedStyle.Render(name))
	sb.WriteString("\n")

	if cfg.IsPool() {
		logic := cfg.Logic
		if logic == "" {
			logic = models.LogicAnd
		}
		sb.WriteString(fmt.Sprintf("Type: pool (%s)\n", logic))
		if len(cfg.Symbols) > 0 {
			sb.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(cfg.Symbols, ", ")))
		}
		for _, s := range cfg.Signals {
			sb.WriteString("- " + signals.DescribeCondition(s) + "\n")
		}
	} else {
		sb.WriteString("Type: signal\n")
		if cfg.Symbol != "" {
			sb.WriteString(fmt.Sprintf("Symbol: %s\n", cfg.Symbol))
		}
		sb.WriteString("Condition: " + signals.DescribeCondition(cfg.SignalCondition) + "\n")
	}
	if cfg.Description != "" {
		sb.WriteString(mutedStyle.Render(cfg.Description) + "\n")
	}
	return cardStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// Conversations renders the conversation list, marking the selected one
func Conversations(list []models.Conversation, selected *int64) string {
	if len(list) == 0 {
		return mutedStyle.Render("No conversations yet") + "\n"
	}

	var sb strings.Builder
	for _, c := range list {
		line := fmt.Sprintf("%4d  %s  %s", c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.Title)
		if selected != nil && *selected == c.ID {
			line = selectedStyle.Render("* " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// Accounts renders the account list, marking the selected one
func Accounts(accounts []models.Account, selected uint) string {
	if len(accounts) == 0 {
		return mutedStyle.Render("No accounts") + "\n"
	}

	var sb strings.Builder
	for _, a := range accounts {
		line := fmt.Sprintf("%4d  %s (%s)", a.ID, a.Name, a.Exchange)
		if !a.IsActive {
			line += " " + mutedStyle.Render("inactive")
		}
		if a.ID == selected {
			line = selectedStyle.Render("* " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// Error renders a user-visible error notification
func Error(message string) string {
	return invalidStyle.Render("! " + message)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Status renders a transient status line
func Status(text string) string {
	return statusStyle.Render("  " + text)
}
