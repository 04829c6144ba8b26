package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/sse"
)

// EventType is the type tag of a chat stream record
type EventType string

const (
	EventStatus       EventType = "status"
	EventReasoning    EventType = "reasoning"
	EventContent      EventType = "content"
	EventSignalConfig EventType = "signal_config"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

var (
	ErrUnknownEvent     = errors.New("unknown event type")
	ErrMalformedPayload = errors.New("malformed event payload")
)

// Event is a decoded chat stream event. The concrete type is selected by the
// record's event tag.
type Event interface {
	Type() EventType
}

// StatusEvent carries a short progress message
type StatusEvent struct {
	Message string `json:"message"`
}

// ReasoningEvent carries a chunk of the assistant's reasoning
type ReasoningEvent struct {
	Content string `json:"content"`
}

// ContentEvent carries the assistant's answer so far
type ContentEvent struct {
	Content string `json:"content"`
}

// SignalConfigEvent carries one proposed config
type SignalConfigEvent struct {
	Config models.SignalConfig
}

// ToolCallEvent reports a tool invocation by the assistant
type ToolCallEvent struct {
	Name      string  `json:"name"`
	Arguments RawText `json:"arguments"`
}

// ToolResultEvent reports the result of a tool invocation
type ToolResultEvent struct {
	Name   string  `json:"name"`
	Result RawText `json:"result"`
}

// DoneEvent is the terminal success event of a stream
type DoneEvent struct {
	ConversationID int64                 `json:"conversation_id"`
	MessageID      int64                 `json:"message_id"`
	Content        string                `json:"content"`
	SignalConfigs  []models.SignalConfig `json:"signal_configs"`
}

// ErrorEvent carries a server-side error message
type ErrorEvent struct {
	Message string `json:"message"`
}

func (StatusEvent) Type() EventType       { return EventStatus }
func (ReasoningEvent) Type() EventType    { return EventReasoning }
func (ContentEvent) Type() EventType      { return EventContent }
func (SignalConfigEvent) Type() EventType { return EventSignalConfig }
func (ToolCallEvent) Type() EventType     { return EventToolCall }
func (ToolResultEvent) Type() EventType   { return EventToolResult }
func (DoneEvent) Type() EventType         { return EventDone }
func (ErrorEvent) Type() EventType        { return EventError }

// ParseEvent narrows a raw record to its typed event
func ParseEvent(rec sse.Record) (Event, error) {
	data := []byte(rec.Data)

	var ev Event
	switch EventType(rec.Event) {
	case EventStatus:
		ev = &StatusEvent{}
	case EventReasoning:
		ev = &ReasoningEvent{}
	case EventContent:
		ev = &ContentEvent{}
	case EventSignalConfig:
		return parseSignalConfig(data)
	case EventToolCall:
		ev = &ToolCallEvent{}
	case EventToolResult:
		ev = &ToolResultEvent{}
	case EventDone:
		ev = &DoneEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, rec.Event)
	}

	if err := decode(data, ev); err != nil {
		return nil, err
	}

	switch e := ev.(type) {
	case *StatusEvent:
		return *e, nil
	case *ReasoningEvent:
		return *e, nil
	case *ContentEvent:
		return *e, nil
	case *ToolCallEvent:
		return *e, nil
	case *ToolResultEvent:
		return *e, nil
	case *ErrorEvent:
		return *e, nil
	case *DoneEvent:
		for i := range e.SignalConfigs {
			if err := normalizeConfig(&e.SignalConfigs[i]); err != nil {
				return nil, err
			}
		}
		return *e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, rec.Event)
}

func parseSignalConfig(data []byte) (Event, error) {
	// The payload is either the config itself or wrapped as {"config": {...}}.
	var wrapped struct {
		Config *models.SignalConfig `json:"config"`
	}
	if err := decode(data, &wrapped); err != nil {
		return nil, err
	}

	var cfg models.SignalConfig
	if wrapped.Config != nil {
		cfg = *wrapped.Config
	} else if err := decode(data, &cfg); err != nil {
		return nil, err
	}

	if err := normalizeConfig(&cfg); err != nil {
		return nil, err
	}
	return SignalConfigEvent{Config: cfg}, nil
}

func normalizeConfig(cfg *models.SignalConfig) error {
	switch cfg.Type {
	case models.ConfigTypeSignal, models.ConfigTypePool:
		return nil
	case "":
		if len(cfg.Signals) > 0 {
			cfg.Type = models.ConfigTypePool
		} else {
			cfg.Type = models.ConfigTypeSignal
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown config type %q", ErrMalformedPayload, cfg.Type)
	}
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// RawText accepts either a JSON string or any other JSON value, which is
// kept as its compact JSON text.
type RawText string

func (t *RawText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = RawText(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = RawText(buf.String())
	return nil
}
