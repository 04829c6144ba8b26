package chat

import (
	"github.com/Cyvadra/signal-desk/internal/models"
)

// Phase is the lifecycle phase of a chat session
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseLoadingConversations Phase = "loading-conversations"
	PhaseHasConversations     Phase = "has-conversations"
	PhaseSending              Phase = "sending"
	PhaseAwaitingStream       Phase = "awaiting-stream"
	PhaseStreaming            Phase = "streaming"
	PhaseDone                 Phase = "done"
	PhaseError                Phase = "error"
)

// ConnectingStatus is the status text of a freshly sent placeholder
const ConnectingStatus = "Connecting..."

// State is the in-memory state of a chat session
type State struct {
	Phase          Phase
	AccountID      uint
	Accounts       []models.Account
	Conversations  []models.Conversation
	ConversationID *int64
	Messages       []models.Message

	// Configs is every config extracted from assistant messages of the
	// selected conversation, flattened in message order.
	Configs []models.SignalConfig

	// StreamingID is the id of the assistant placeholder that receives
	// stream events; zero when nothing is streaming.
	StreamingID    int64
	PendingUserID  int64
	PendingConfigs []models.SignalConfig
}

// IsStreaming reports whether an assistant message is being streamed
func (s State) IsStreaming() bool {
	return s.StreamingID != 0
}

// Message returns the message with the given id
func (s State) Message(id int64) (models.Message, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Messages[i], true
	}
	return models.Message{}, false
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	out := s
	if s.ConversationID != nil {
		id := *s.ConversationID
		out.ConversationID = &id
	}
	out.Accounts = append([]models.Account(nil), s.Accounts...)
	out.Conversations = append([]models.Conversation(nil), s.Conversations...)
	out.Messages = cloneMessages(s.Messages)
	out.Configs = cloneConfigs(s.Configs)
	out.PendingConfigs = cloneConfigs(s.PendingConfigs)
	return out
}

func (s State) indexOf(id int64) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMessages(in []models.Message) []models.Message {
	if in == nil {
		return nil
	}
	out := make([]models.Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func cloneConfigs(in []models.SignalConfig) []models.SignalConfig {
	if in == nil {
		return nil
	}
	out := make([]models.SignalConfig, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// CollectConfigs flattens the configs of all assistant messages in order
func CollectConfigs(messages []models.Message) []models.SignalConfig {
	var configs []models.SignalConfig
	for _, m := range messages {
		if m.Role != models.RoleAssistant {
			continue
		}
		for _, c := range m.SignalConfigs {
			configs = append(configs, c.Clone())
		}
	}
	return configs
}
