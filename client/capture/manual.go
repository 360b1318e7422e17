package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/inair/warehouse/client/api"
)

// ErrNotArmed is returned when Commit is called with no armed entry.
var ErrNotArmed = errors.New("capture: nothing armed")

// ManualGateway is the submission call the manual adapter needs.
type ManualGateway interface {
	SubmitManual(ctx context.Context, entry api.ManualEntry) (*api.Result, error)
}

// ManualAdapter is the typed-in entry flow. Submission is two-step:
// Arm stages the entry for review, Commit sends it. Cancel disarms
// without submitting.
type ManualAdapter struct {
	gw ManualGateway

	mu      sync.Mutex
	armed   bool
	pending api.ManualEntry
}

// NewManualAdapter creates a ManualAdapter.
func NewManualAdapter(gw ManualGateway) *ManualAdapter {
	return &ManualAdapter{gw: gw}
}

// Arm stages an entry. Re-arming replaces the previous staged entry.
func (a *ManualAdapter) Arm(entry api.ManualEntry) error {
	if entry.Name == "" {
		return errors.New("capture: name required")
	}
	if entry.Quantity < 1 {
		return errors.New("capture: quantity must be at least 1")
	}
	a.mu.Lock()
	a.pending = entry
	a.armed = true
	a.mu.Unlock()
	return nil
}

// Armed reports whether an entry is staged.
func (a *ManualAdapter) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// Commit submits the armed entry. Exactly one gateway call; the entry
// is disarmed whether the submission succeeds or fails, so a retry is
// an explicit re-arm.
func (a *ManualAdapter) Commit(ctx context.Context) (*api.Result, error) {
	a.mu.Lock()
	if !a.armed {
		a.mu.Unlock()
		return nil, ErrNotArmed
	}
	entry := a.pending
	a.armed = false
	a.mu.Unlock()

	return a.gw.SubmitManual(ctx, entry)
}

// Cancel disarms without submitting.
func (a *ManualAdapter) Cancel() {
	a.mu.Lock()
	a.armed = false
	a.pending = api.ManualEntry{}
	a.mu.Unlock()
}
