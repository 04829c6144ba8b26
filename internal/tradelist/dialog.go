package tradelist

import (
	"context"
	"errors"
	"sync"
)

// ErrDialogClosed is returned when confirming a dialog that is not open
var ErrDialogClosed = errors.New("sync dialog is not open")

// SyncFunc pulls realized PnL for the listed account and returns a summary
// message for display
type SyncFunc func(ctx context.Context) (string, error)

// SyncDialog is the confirmation step in front of a PnL sync. Confirming
// invokes the sync action once and closes the dialog. Errors belong to the
// action; the dialog does not retry.
type SyncDialog struct {
	mu     sync.Mutex
	open   bool
	action SyncFunc
	result string
}

// NewSyncDialog creates a closed dialog for action
func NewSyncDialog(action SyncFunc) *SyncDialog {
	return &SyncDialog{action: action}
}

// Open shows the dialog
func (d *SyncDialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
}

// Cancel closes the dialog without syncing
func (d *SyncDialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// IsOpen reports whether the dialog is shown
func (d *SyncDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Confirm closes the dialog and runs the sync action. The action's message
// is stored as the result.
func (d *SyncDialog) Confirm(ctx context.Context) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return ErrDialogClosed
	}
	d.open = false
	action := d.action
	d.mu.Unlock()

	if action == nil {
		return nil
	}
	msg, err := action(ctx)
	if err != nil {
		return err
	}
	if msg != "" {
		d.SetResult(msg)
	}
	return nil
}

// SetResult stores a result message shown below the trade list
func (d *SyncDialog) SetResult(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = msg
}

// Result returns the stored result message
func (d *SyncDialog) Result() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}
