package correlation

import (
	"PushProbe/internal/core/ports"
	"fmt"
	"time"
)

// Waiter modes accepted by New.
const (
	ModeKeyed = "keyed"
	ModeSlot  = "slot"
)

// New builds the waiter for the configured mode. retention bounds how long
// the keyed waiter keeps unclaimed events; <= 0 means DefaultRetention.
func New(mode string, retention time.Duration) (ports.CorrelationWaiter, error) {
	switch mode {
	case ModeKeyed, "":
		return NewKeyedWaiterWithRetention(retention), nil
	case ModeSlot:
		return NewSlotWaiter(), nil
	default:
		return nil, fmt.Errorf("unknown waiter mode: %s", mode)
	}
}

// runForgetter is implemented by waiters that can drop a whole run at once.
type runForgetter interface {
	ForgetRun(runID string)
}

// ForgetRun drops every event of runID when the waiter supports it.
// Single-slot waiters have nothing per-run to drop.
func ForgetRun(w ports.EventWaiter, runID string) {
	if f, ok := w.(runForgetter); ok {
		f.ForgetRun(runID)
	}
}
