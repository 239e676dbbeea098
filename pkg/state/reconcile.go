package state

import (
	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
)

// PendingChecker reports whether a local edit is in flight for a key.
// The write scheduler implements it.
type PendingChecker interface {
	HasPending(key model.ParamKey) bool
}

// Reconciler merges server-pushed state into the store.
type Reconciler struct {
	store   *Store
	pending PendingChecker
	logger  log.Logger
}

// NewReconciler creates a reconciler over the store. pending may be nil,
// in which case remote updates always apply.
func NewReconciler(store *Store, pending PendingChecker, logger log.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		pending: pending,
		logger:  log.OrNoop(logger),
	}
}

// ApplyRemoteUpdate merges a pushed value for key into the store and reports
// whether a visible change resulted.
//
// The update is dropped while the scheduler holds a pending edit for the
// same key, so a slider the operator is actively dragging never snaps back.
// The guard is per key: edits in flight on other keys do not block this one.
//
// A pushed value equal to the current visible value is the echo of a write
// this client issued; it confirms the value silently instead of producing a
// second visible change.
func (r *Reconciler) ApplyRemoteUpdate(key model.ParamKey, value any) bool {
	if r.pending != nil && r.pending.HasPending(key) {
		e := log.NewEvent(log.CategoryState)
		e.Target = string(key.Target)
		e.Param = key.Name
		e.Message = "remote update dropped, local edit in flight"
		r.logger.Log(e)
		return false
	}

	if current, ok := r.store.Get(key); ok && valuesEqual(current, value) {
		// Echo of our own write: promote to confirmed without a
		// visible change.
		r.store.Confirm(key, value)
		return false
	}

	// Client idle: the event channel is authoritative.
	r.store.Confirm(key, value)

	e := log.NewEvent(log.CategoryState)
	e.Direction = log.DirectionIn
	e.Target = string(key.Target)
	e.Param = key.Name
	e.Message = "remote update applied"
	r.logger.Log(e)
	return true
}
