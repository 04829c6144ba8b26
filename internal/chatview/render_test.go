package chatview

import (
	"strings"
	"testing"
	"time"

	"github.com/Cyvadra/signal-desk/internal/chat"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
	"github.com/stretchr/testify/assert"
)

func TestMessageStreaming(t *testing.T) {
	msg := models.Message{
		Role:        models.RoleAssistant,
		Content:     "Working on it",
		IsStreaming: true,
		StatusText:  "Calling parse_signal_rules...",
		AnalysisLog: []models.AnalysisEntry{
			{Type: models.AnalysisReasoning, Content: "Looking for rules"},
			{Type: models.AnalysisToolCall, Name: "parse_signal_rules", Arguments: `{"text":"x"}`},
			{Type: models.AnalysisToolResult, Name: "parse_signal_rules", Result: strings.Repeat("r", 200)},
		},
	}

	out := Message(msg)
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "Working on it")
	assert.Contains(t, out, "thinking: Looking for rules")
	assert.Contains(t, out, `-> parse_signal_rules({"text":"x"})`)
	assert.Contains(t, out, strings.Repeat("r", resultPreviewLength)+"...")
	assert.Contains(t, out, "Calling parse_signal_rules...")
}

func TestMessageFinalHidesAnalysis(t *testing.T) {
	msg := models.Message{
		Role:        models.RoleAssistant,
		Content:     "Done",
		AnalysisLog: []models.AnalysisEntry{{Type: models.AnalysisReasoning, Content: "hidden"}},
	}
	out := Message(msg)
	assert.Contains(t, out, "Done")
	assert.NotContains(t, out, "hidden")
}

func TestTranscript(t *testing.T) {
	assert.Contains(t, Transcript(chat.State{}), "No messages yet")

	state := chat.State{Messages: []models.Message{
		{Role: models.RoleUser, Content: "rsi < 30"},
		{Role: models.RoleAssistant, Content: "Proposed 1 signal config(s):"},
	}}
	out := Transcript(state)
	assert.Contains(t, out, "You")
	assert.Less(t, strings.Index(out, "rsi < 30"), strings.Index(out, "Proposed"))
}

func TestCards(t *testing.T) {
	tracker := signals.NewCreationTracker()
	configs := []models.SignalConfig{
		{Type: models.ConfigTypeSignal, Name: "BTC OI", Symbol: "BTCUSDT",
			SignalCondition: models.SignalCondition{Metric: "oi_delta", Operator: "greater_than", Threshold: models.Float(2)}},
		{Type: models.ConfigTypeSignal, Name: "Broken"},
	}
	cards := signals.BuildCards(configs, tracker)

	out := Cards(cards)
	assert.Contains(t, out, "[1] BTC OI [BTCUSDT]")
	assert.Contains(t, out, "OI Delta > 2")
	assert.Contains(t, out, "incomplete")
	assert.Empty(t, Cards(nil))
}

func TestPreview(t *testing.T) {
	pool := models.SignalConfig{
		Type:    models.ConfigTypePool,
		Symbols: []string{"BTCUSDT"},
		Signals: []models.SignalCondition{{Metric: "rsi", Operator: "less_than", Threshold: models.Float(30)}},
	}
	out := Preview(pool)
	assert.Contains(t, out, "Untitled")
	assert.Contains(t, out, "Type: pool (AND)")
	assert.Contains(t, out, "- RSI < 30")
}

func TestListsMarkSelection(t *testing.T) {
	id := int64(2)
	convs := []models.Conversation{
		{ID: 1, Title: "first", UpdatedAt: time.Now()},
		{ID: 2, Title: "second", UpdatedAt: time.Now()},
	}
	out := Conversations(convs, &id)
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, "second")
	assert.Contains(t, Conversations(nil, nil), "No conversations yet")

	accounts := []models.Account{{ID: 1, Name: "main", Exchange: "binance", IsActive: true}, {ID: 2, Name: "old"}}
	out = Accounts(accounts, 1)
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, "inactive")
}
