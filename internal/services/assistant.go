package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const parseToolName = "parse_signal_rules"

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrAccountInactive = errors.New("account is not active")
)

// Stream event names written to the chat stream
const (
	StreamStatus       = "status"
	StreamReasoning    = "reasoning"
	StreamToolCall     = "tool_call"
	StreamToolResult   = "tool_result"
	StreamContent      = "content"
	StreamSignalConfig = "signal_config"
	StreamDone         = "done"
	StreamError        = "error"
)

// StreamEvent is one named record of a chat stream; Data is JSON encoded
type StreamEvent struct {
	Name string
	Data any
}

// EmitFunc writes a stream event to the client
type EmitFunc func(StreamEvent) error

// AssistantService answers chat messages with signal config proposals
type AssistantService struct {
	conversations *ConversationService
	accounts      *AccountService
	logger        zerolog.Logger
	pace          time.Duration
}

// NewAssistantService creates a new assistant service
func NewAssistantService(conversations *ConversationService, accounts *AccountService) *AssistantService {
	return &AssistantService{
		conversations: conversations,
		accounts:      accounts,
		logger:        log.With().Str("component", "assistant").Logger(),
	}
}

// SetLogger sets the logger for the assistant service
func (s *AssistantService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetPace sets a delay between stream events
func (s *AssistantService) SetPace(d time.Duration) {
	s.pace = d
}

// ChatTurn is an accepted user message waiting for its answer stream
type ChatTurn struct {
	ConversationID int64
	UserMessageID  int64
	AccountName    string

	text string
	svc  *AssistantService
}

// Begin validates the request and stores the user message, creating the
// conversation when the request has none.
func (s *AssistantService) Begin(req models.ChatStreamRequest) (*ChatTurn, error) {
	text := strings.TrimSpace(req.UserMessage)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	account, err := s.accounts.GetAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrAccountInactive, account.Name)
	}

	var conversationID int64
	if req.ConversationID != nil {
		conversation, err := s.conversations.GetConversation(*req.ConversationID)
		if err != nil {
			return nil, err
		}
		conversationID = conversation.ID
	} else {
		conversation, err := s.conversations.CreateConversation(account.ID, text)
		if err != nil {
			return nil, err
		}
		conversationID = conversation.ID
		s.logger.Info().Int64("conversation_id", conversationID).Str("account", account.Name).Msg("Started conversation")
	}

	msg, err := s.conversations.AppendMessage(conversationID, models.RoleUser, text, nil)
	if err != nil {
		return nil, err
	}

	return &ChatTurn{
		ConversationID: conversationID,
		UserMessageID:  msg.ID,
		AccountName:    account.Name,
		text:           text,
		svc:            s,
	}, nil
}

// Run parses the message, stores the assistant answer and streams it.
// Emission stops early when ctx is done; the answer stays stored.
func (t *ChatTurn) Run(ctx context.Context, emit EmitFunc) error {
	s := t.svc
	send := func(name string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(StreamEvent{Name: name, Data: data}); err != nil {
			return err
		}
		if s.pace > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pace):
			}
		}
		return nil
	}

	if err := send(StreamStatus, map[string]string{"message": "Analyzing request..."}); err != nil {
		return err
	}

	rules := ParseRules(t.text)
	reasoning := fmt.Sprintf("Looking for signal rules for account %s in %d line(s) of input.",
		t.AccountName, len(splitSegments(t.text)))
	if err := send(StreamReasoning, map[string]string{"content": reasoning}); err != nil {
		return err
	}

	if err := send(StreamToolCall, map[string]any{
		"name":      parseToolName,
		"arguments": map[string]string{"text": t.text},
	}); err != nil {
		return err
	}
	if err := send(StreamToolResult, map[string]any{
		"name": parseToolName,
		"result": map[string]any{
			"configs": len(rules.Configs),
			"errors":  rules.Errors,
		},
	}); err != nil {
		return err
	}

	lines := answerLines(rules)
	content := strings.Join(lines, "\n")

	msg, err := s.conversations.AppendMessage(t.ConversationID, models.RoleAssistant, content, rules.Configs)
	if err != nil {
		return err
	}

	for i := range lines {
		partial := strings.Join(lines[:i+1], "\n")
		if err := send(StreamContent, map[string]string{"content": partial}); err != nil {
			return err
		}
	}

	for _, cfg := range rules.Configs {
		if err := send(StreamSignalConfig, cfg); err != nil {
			return err
		}
	}

	configs := rules.Configs
	if configs == nil {
		configs = []models.SignalConfig{}
	}
	s.logger.Debug().Int64("conversation_id", t.ConversationID).Int("configs", len(configs)).Msg("Answered message")
	return send(StreamDone, map[string]any{
		"conversation_id": t.ConversationID,
		"message_id":      msg.ID,
		"content":         content,
		"signal_configs":  configs,
	})
}

func answerLines(rules RuleSet) []string {
	var lines []string
	if len(rules.Configs) == 0 && len(rules.Errors) == 0 {
		return []string{
			"I could not find a signal rule in your message. Try for example:",
			"- BTCUSDT oi_delta > 2 over 5m",
			"- ETHUSDT taker_volume buy ratio 1.5 volume 100k",
			"- pool AND BTCUSDT cvd > 100k, funding_rate < 0",
		}
	}

	if len(rules.Configs) > 0 {
		lines = append(lines, fmt.Sprintf("Proposed %d signal config(s):", len(rules.Configs)))
		for i, cfg := range rules.Configs {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, cfg.Name))
		}
	}
	if len(rules.Errors) > 0 {
		lines = append(lines, "Could not parse:")
		for _, e := range rules.Errors {
			lines = append(lines, "- "+e)
		}
	}
	return lines
}
