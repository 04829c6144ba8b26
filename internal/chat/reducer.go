package chat

import (
	"fmt"
	"unicode/utf8"

	"github.com/Cyvadra/signal-desk/internal/models"
)

const reasoningPreviewLen = 80

// Effect describes what the caller must do after a reduction
type Effect struct {
	// Notify is a user-visible error message, empty when none.
	Notify string
	// Finished is set when the stream reached its terminal event.
	Finished bool
	// ConversationCreated is set when a new conversation id was adopted.
	ConversationCreated bool
}

// StartStream appends the optimistic user message and the streaming
// assistant placeholder. The placeholder id is userID+1.
func StartStream(s State, text string, userID int64) State {
	s = s.Clone()

	var convID int64
	if s.ConversationID != nil {
		convID = *s.ConversationID
	}

	s.Messages = append(s.Messages,
		models.Message{
			ID:             userID,
			ConversationID: convID,
			Role:           models.RoleUser,
			Content:        text,
		},
		models.Message{
			ID:             userID + 1,
			ConversationID: convID,
			Role:           models.RoleAssistant,
			IsStreaming:    true,
			StatusText:     ConnectingStatus,
		},
	)
	s.PendingUserID = userID
	s.StreamingID = userID + 1
	s.PendingConfigs = nil
	s.Phase = PhaseSending
	return s
}

// AbortStream removes both optimistic messages of the in-flight stream
func AbortStream(s State) State {
	if !s.IsStreaming() {
		return s
	}
	s = s.Clone()

	kept := s.Messages[:0]
	for _, m := range s.Messages {
		if m.ID == s.PendingUserID || m.ID == s.StreamingID {
			continue
		}
		kept = append(kept, m)
	}
	s.Messages = kept
	s.StreamingID = 0
	s.PendingUserID = 0
	s.PendingConfigs = nil
	s.Phase = PhaseError
	return s
}

// FinishIncomplete finalizes a placeholder whose stream ended without a
// done event, keeping the last received content and any configs that were
// announced on the way.
func FinishIncomplete(s State) State {
	if !s.IsStreaming() {
		return s
	}
	s = s.Clone()

	if i := s.indexOf(s.StreamingID); i >= 0 {
		msg := &s.Messages[i]
		msg.SignalConfigs = s.PendingConfigs
		clearTransient(msg)
		s.Configs = append(s.Configs, cloneConfigs(s.PendingConfigs)...)
	}
	s.StreamingID = 0
	s.PendingUserID = 0
	s.PendingConfigs = nil
	s.Phase = PhaseDone
	return s
}

// Reduce applies one stream event to the streaming placeholder
func Reduce(s State, ev Event) (State, Effect) {
	var eff Effect
	if !s.IsStreaming() {
		return s, eff
	}

	s = s.Clone()
	i := s.indexOf(s.StreamingID)
	if i < 0 {
		return s, eff
	}
	msg := &s.Messages[i]
	s.Phase = PhaseStreaming

	switch e := ev.(type) {
	case StatusEvent:
		msg.StatusText = e.Message

	case ReasoningEvent:
		msg.AnalysisLog = append(msg.AnalysisLog, models.AnalysisEntry{
			Type:    models.AnalysisReasoning,
			Content: e.Content,
		})
		msg.StatusText = preview(e.Content, reasoningPreviewLen)

	case ContentEvent:
		msg.Content = e.Content
		msg.StatusText = ""

	case SignalConfigEvent:
		s.PendingConfigs = append(s.PendingConfigs, e.Config.Clone())

	case ToolCallEvent:
		msg.AnalysisLog = append(msg.AnalysisLog, models.AnalysisEntry{
			Type:      models.AnalysisToolCall,
			Name:      e.Name,
			Arguments: string(e.Arguments),
		})
		msg.StatusText = fmt.Sprintf("Calling %s...", e.Name)

	case ToolResultEvent:
		msg.AnalysisLog = append(msg.AnalysisLog, models.AnalysisEntry{
			Type:   models.AnalysisToolResult,
			Name:   e.Name,
			Result: string(e.Result),
		})
		msg.StatusText = fmt.Sprintf("Got result from %s", e.Name)

	case DoneEvent:
		configs := e.SignalConfigs
		if configs == nil {
			configs = s.PendingConfigs
		}
		configs = cloneConfigs(configs)

		if e.MessageID != 0 {
			msg.ID = e.MessageID
		}
		if e.ConversationID != 0 {
			msg.ConversationID = e.ConversationID
			if s.ConversationID == nil {
				id := e.ConversationID
				s.ConversationID = &id
				eff.ConversationCreated = true
				if u := s.indexOf(s.PendingUserID); u >= 0 {
					s.Messages[u].ConversationID = id
				}
			}
		}
		msg.Content = e.Content
		msg.SignalConfigs = configs
		clearTransient(msg)

		s.Configs = append(s.Configs, cloneConfigs(configs)...)
		s.StreamingID = 0
		s.PendingUserID = 0
		s.PendingConfigs = nil
		s.Phase = PhaseDone
		eff.Finished = true

	case ErrorEvent:
		eff.Notify = e.Message
	}

	return s, eff
}

func clearTransient(msg *models.Message) {
	msg.IsStreaming = false
	msg.StatusText = ""
	msg.AnalysisLog = nil
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
