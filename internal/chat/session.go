package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
	"github.com/Cyvadra/signal-desk/internal/sse"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrStreamInFlight = errors.New("a response is already streaming")
	ErrConfigNotFound = errors.New("signal config not found")
	ErrInvalidConfig  = errors.New("signal config is incomplete")
	ErrNoCreator      = errors.New("no creator configured")
)

// API is the backend surface used by a session
type API interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	OpenChatStream(ctx context.Context, req models.ChatStreamRequest) (io.ReadCloser, error)
}

// Creator commits a proposed config. It reports whether the config was created.
type Creator interface {
	CreateSignal(ctx context.Context, cfg models.SignalConfig) (bool, error)
	CreatePool(ctx context.Context, cfg models.SignalConfig) (bool, error)
}

// Previewer shows a proposed config without committing it
type Previewer interface {
	PreviewSignal(cfg models.SignalConfig)
}

// Notifier raises user-visible error notifications
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

// Notify calls f(message)
func (f NotifierFunc) Notify(message string) { f(message) }

// Session is a conversation with the signal assistant. It is safe for
// concurrent use; SendMessage blocks while the answer streams and publishes
// every intermediate state through the update handler.
type Session struct {
	api       API
	notifier  Notifier
	creator   Creator
	previewer Previewer
	onUpdate  func(State)
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	// tracker holds card creation state of the current aggregate list and
	// is replaced whenever the list is rebuilt or cleared
	tracker   *signals.CreationTracker
	cancel    context.CancelFunc
	streamGen uint64
}

// NewSession creates a new chat session
func NewSession(api API, notifier Notifier) *Session {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Session{
		api:      api,
		notifier: notifier,
		logger:   log.With().Str("component", "chat").Logger(),
		now:      time.Now,
		state:    State{Phase: PhaseIdle},
		tracker:  signals.NewCreationTracker(),
	}
}

// SetCreator sets the host callback used to commit configs
func (s *Session) SetCreator(c Creator) { s.creator = c }

// SetPreviewer sets the host callback used to preview configs
func (s *Session) SetPreviewer(p Previewer) { s.previewer = p }

// SetUpdateHandler sets the function called with a snapshot after every change
func (s *Session) SetUpdateHandler(fn func(State)) { s.onUpdate = fn }

// SetLogger sets a custom logger
func (s *Session) SetLogger(logger zerolog.Logger) { s.logger = logger }

// SetClock replaces the clock used to generate optimistic message ids
func (s *Session) SetClock(now func() time.Time) { s.now = now }

// State returns a snapshot of the session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Cards returns the card view models of the aggregate config list
func (s *Session) Cards() []signals.Card {
	s.mu.Lock()
	configs := cloneConfigs(s.state.Configs)
	tracker := s.tracker
	s.mu.Unlock()
	return signals.BuildCards(configs, tracker)
}

// Open loads accounts and conversations. When no account is selected the
// first active account is selected.
func (s *Session) Open(ctx context.Context) error {
	s.update(func(st *State) { st.Phase = PhaseLoadingConversations })

	if s.State().AccountID == 0 {
		accounts, err := s.api.ListAccounts(ctx)
		if err != nil {
			return s.fail("Failed to load accounts", err)
		}
		s.update(func(st *State) {
			st.Accounts = accounts
			if st.AccountID != 0 {
				return
			}
			for _, a := range accounts {
				if a.IsActive {
					st.AccountID = a.ID
					break
				}
			}
		})
	}

	return s.refreshConversations(ctx)
}

// SelectAccount selects the account used for new messages
func (s *Session) SelectAccount(accountID uint) {
	s.update(func(st *State) { st.AccountID = accountID })
}

// SelectConversation loads the messages of a conversation and rebuilds the
// aggregate config list from them.
func (s *Session) SelectConversation(ctx context.Context, id int64) error {
	s.cancelStream()

	messages, err := s.api.ListMessages(ctx, id)
	if err != nil {
		return s.fail("Failed to load messages", err)
	}

	s.update(func(st *State) {
		s.tracker = signals.NewCreationTracker()
		st.ConversationID = &id
		st.Messages = messages
		st.Configs = CollectConfigs(messages)
		st.StreamingID = 0
		st.PendingUserID = 0
		st.PendingConfigs = nil
		st.Phase = PhaseHasConversations
	})
	return nil
}

// NewConversation clears the selected conversation locally
func (s *Session) NewConversation() {
	s.cancelStream()
	s.update(func(st *State) {
		s.tracker = signals.NewCreationTracker()
		st.ConversationID = nil
		st.Messages = nil
		st.Configs = nil
		st.StreamingID = 0
		st.PendingUserID = 0
		st.PendingConfigs = nil
		st.Phase = PhaseIdle
	})
}

// Close cancels any in-flight stream
func (s *Session) Close() {
	s.cancelStream()
}

// SendMessage sends text to the assistant and streams the answer into the
// session. Blank text or a missing account make it a no-op.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.state.AccountID == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.state.IsStreaming() {
		s.mu.Unlock()
		return ErrStreamInFlight
	}

	s.state = StartStream(s.state, text, s.now().UnixMilli())
	req := models.ChatStreamRequest{
		AccountID:   s.state.AccountID,
		UserMessage: text,
	}
	if s.state.ConversationID != nil {
		id := *s.state.ConversationID
		req.ConversationID = &id
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.streamGen++
	gen := s.streamGen
	s.cancel = cancel
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.publish(snapshot)

	defer func() {
		s.mu.Lock()
		if s.streamGen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	body, err := s.api.OpenChatStream(streamCtx, req)
	if err != nil {
		return s.abort(gen, err)
	}
	defer body.Close()

	s.updateGen(gen, func(st *State) { st.Phase = PhaseAwaitingStream })

	var created bool
	err = sse.Stream(streamCtx, body, func(rec sse.Record) error {
		ev, perr := ParseEvent(rec)
		if perr != nil {
			s.logger.Debug().Err(perr).Str("event", rec.Event).Msg("Skipping stream record")
			return nil
		}
		eff := s.apply(gen, ev)
		if eff.Notify != "" {
			s.notifier.Notify(eff.Notify)
		}
		created = created || eff.ConversationCreated
		return nil
	})
	if err != nil {
		if err := s.abort(gen, err); err != nil {
			return err
		}
	}

	s.finish(gen)

	if created {
		if err := s.refreshConversations(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to refresh conversations")
		}
	}
	return nil
}

// CreateConfig commits the config at index of the aggregate list through
// the host creator. It returns whether the config was created.
func (s *Session) CreateConfig(ctx context.Context, index int) (bool, error) {
	if s.creator == nil {
		return false, ErrNoCreator
	}

	cfg, tracker, err := s.configAt(index)
	if err != nil {
		return false, err
	}

	key := signals.CardKey(cfg, index)
	if err := tracker.Begin(key); err != nil {
		return false, err
	}
	s.publish(s.State())

	var ok bool
	if cfg.IsPool() {
		ok, err = s.creator.CreatePool(ctx, cfg)
	} else {
		ok, err = s.creator.CreateSignal(ctx, cfg)
	}
	tracker.Finish(key, ok && err == nil)
	s.publish(s.State())

	if err != nil {
		s.notifier.Notify(fmt.Sprintf("Failed to create %s: %v", cfg.Type, err))
		return false, err
	}
	return ok, nil
}

// PreviewConfig hands the config at index to the host previewer
func (s *Session) PreviewConfig(index int) error {
	cfg, _, err := s.configAt(index)
	if err != nil {
		return err
	}
	if s.previewer != nil {
		s.previewer.PreviewSignal(cfg)
	}
	return nil
}

// configAt returns the config at index together with the tracker of the
// aggregate list it belongs to
func (s *Session) configAt(index int) (models.SignalConfig, *signals.CreationTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.state.Configs) {
		return models.SignalConfig{}, nil, ErrConfigNotFound
	}
	cfg := s.state.Configs[index].Clone()
	if !signals.IsValid(cfg) {
		return models.SignalConfig{}, nil, ErrInvalidConfig
	}
	return cfg, s.tracker, nil
}

func (s *Session) refreshConversations(ctx context.Context) error {
	conversations, err := s.api.ListConversations(ctx)
	if err != nil {
		return s.fail("Failed to load conversations", err)
	}
	s.update(func(st *State) {
		st.Conversations = conversations
		if st.IsStreaming() {
			return
		}
		if len(conversations) > 0 {
			st.Phase = PhaseHasConversations
		} else if st.Phase == PhaseLoadingConversations {
			st.Phase = PhaseIdle
		}
	})
	return nil
}

// apply reduces ev if gen is still the current stream
func (s *Session) apply(gen uint64, ev Event) Effect {
	s.mu.Lock()
	if gen != s.streamGen {
		s.mu.Unlock()
		return Effect{}
	}
	var eff Effect
	s.state, eff = Reduce(s.state, ev)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return eff
}

func (s *Session) finish(gen uint64) {
	s.mu.Lock()
	if gen != s.streamGen || !s.state.IsStreaming() {
		s.mu.Unlock()
		return
	}
	s.logger.Warn().Int64("message_id", s.state.StreamingID).Msg("Stream ended without done event")
	s.state = FinishIncomplete(s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
}

// abort rolls back the optimistic messages of stream gen and notifies the
// user. A stream superseded by cancelStream is dropped silently. When the
// answer was already completed by a done event the failure is only logged
// and abort returns nil.
func (s *Session) abort(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.streamGen {
		s.mu.Unlock()
		return context.Canceled
	}
	if !s.state.IsStreaming() {
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("Chat stream failed after the answer completed")
		return nil
	}
	s.state = AbortStream(s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	s.logger.Error().Err(err).Msg("Chat stream failed")
	s.notifier.Notify(fmt.Sprintf("Failed to send message: %v", err))
	return err
}

func (s *Session) cancelStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.streamGen++
}

func (s *Session) fail(msg string, err error) error {
	s.update(func(st *State) { st.Phase = PhaseError })
	s.logger.Error().Err(err).Msg(msg)
	s.notifier.Notify(fmt.Sprintf("%s: %v", msg, err))
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Session) updateGen(gen uint64, fn func(*State)) {
	s.mu.Lock()
	if gen != s.streamGen {
		s.mu.Unlock()
		return
	}
	fn(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Session) publish(snapshot State) {
	if s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
}
