package signals

import (
	"errors"
	"strconv"
	"sync"

	"github.com/Cyvadra/signal-desk/internal/models"
)

var (
	ErrAlreadyCreating = errors.New("config is already being created")
	ErrAlreadyCreated  = errors.New("config has already been created")
)

// CardKey identifies a proposed config across re-renders. Named configs are
// keyed by name so that the same proposal keeps its state; unnamed configs
// fall back to their position in the aggregate list. The prefixes keep the
// two key spaces apart.
func CardKey(cfg models.SignalConfig, index int) string {
	if cfg.Name != "" {
		return "name:" + cfg.Name
	}
	return "idx:" + strconv.Itoa(index)
}

// CreationTracker records which configs are being created and which are
// already created. Created is permanent for the tracker's lifetime.
type CreationTracker struct {
	mu       sync.Mutex
	creating map[string]struct{}
	created  map[string]struct{}
}

// NewCreationTracker creates an empty tracker
func NewCreationTracker() *CreationTracker {
	return &CreationTracker{
		creating: make(map[string]struct{}),
		created:  make(map[string]struct{}),
	}
}

// Begin marks key as creating
func (t *CreationTracker) Begin(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.created[key]; ok {
		return ErrAlreadyCreated
	}
	if _, ok := t.creating[key]; ok {
		return ErrAlreadyCreating
	}
	t.creating[key] = struct{}{}
	return nil
}

// Finish clears the creating mark and, when ok, marks key as created
func (t *CreationTracker) Finish(key string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.creating, key)
	if ok {
		t.created[key] = struct{}{}
	}
}

// IsCreating reports whether key is being created
func (t *CreationTracker) IsCreating(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.creating[key]
	return ok
}

// IsCreated reports whether key has been created
func (t *CreationTracker) IsCreated(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.created[key]
	return ok
}
