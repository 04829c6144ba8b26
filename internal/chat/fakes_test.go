package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing/iotest"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/stretchr/testify/mock"
)

// chunkedReader returns at most size bytes per Read
type chunkedReader struct {
	data []byte
	size int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

type fakeAPI struct {
	mu sync.Mutex

	accounts      []models.Account
	conversations []models.Conversation
	messages      map[int64][]models.Message

	stream    string
	chunkSize int
	streamErr error
	// tailErr is returned by the body after the whole stream was read
	tailErr  error
	blocking bool

	requests          []models.ChatStreamRequest
	conversationCalls int
	accountCalls      int
}

func (f *fakeAPI) ListAccounts(ctx context.Context) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	return f.accounts, nil
}

func (f *fakeAPI) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversationCalls++
	return f.conversations, nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, id int64) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.messages[id]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return msgs, nil
}

func (f *fakeAPI) OpenChatStream(ctx context.Context, req models.ChatStreamRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.blocking {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}

	size := f.chunkSize
	if size <= 0 {
		size = len(f.stream) + 1
	}
	var body io.Reader = &chunkedReader{data: []byte(f.stream), size: size}
	if f.tailErr != nil {
		body = io.MultiReader(body, iotest.ErrReader(f.tailErr))
	}
	return io.NopCloser(body), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// MockCreator is a mock implementation of the Creator interface
type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) CreateSignal(ctx context.Context, cfg models.SignalConfig) (bool, error) {
	args := m.Called(ctx, cfg)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreator) CreatePool(ctx context.Context, cfg models.SignalConfig) (bool, error) {
	args := m.Called(ctx, cfg)
	return args.Bool(0), args.Error(1)
}

type previewRecorder struct {
	configs []models.SignalConfig
}

func (p *previewRecorder) PreviewSignal(cfg models.SignalConfig) {
	p.configs = append(p.configs, cfg)
}
