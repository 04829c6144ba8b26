package models

import "time"

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AnalysisEntryType is the kind of an analysis log entry
type AnalysisEntryType string

const (
	AnalysisReasoning  AnalysisEntryType = "reasoning"
	AnalysisToolCall   AnalysisEntryType = "tool_call"
	AnalysisToolResult AnalysisEntryType = "tool_result"
)

// Conversation represents a chat conversation with the assistant
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisEntry is one step of the assistant's visible analysis while streaming
type AnalysisEntry struct {
	Type      AnalysisEntryType `json:"type"`
	Content   string            `json:"content,omitempty"`
	Name      string            `json:"name,omitempty"`
	Arguments string            `json:"arguments,omitempty"`
	Result    string            `json:"result,omitempty"`
}

// Message represents a chat message. IsStreaming, StatusText and
// AnalysisLog are only populated while the assistant answer is streaming.
type Message struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id,omitempty"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	SignalConfigs  []SignalConfig `json:"signal_configs,omitempty"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`

	IsStreaming bool            `json:"-"`
	StatusText  string          `json:"-"`
	AnalysisLog []AnalysisEntry `json:"-"`
}

// Clone returns a deep copy of the message
func (m Message) Clone() Message {
	out := m
	if m.SignalConfigs != nil {
		out.SignalConfigs = make([]SignalConfig, len(m.SignalConfigs))
		for i, cfg := range m.SignalConfigs {
			out.SignalConfigs[i] = cfg.Clone()
		}
	}
	if m.AnalysisLog != nil {
		out.AnalysisLog = append([]AnalysisEntry(nil), m.AnalysisLog...)
	}
	return out
}

// ChatStreamRequest is the body of a chat-stream request
type ChatStreamRequest struct {
	AccountID      uint   `json:"accountId"`
	UserMessage    string `json:"userMessage"`
	ConversationID *int64 `json:"conversationId"`
}
