// Package faults collects transient propagation failures for operator
// visibility. Recorded failures are visible as a group and self-clear after
// a rolling TTL: a new Record call restarts the timer for the whole
// collection, so recent failures never disappear one by one while the
// operator is looking at them, and stale failures never linger.
package faults

import (
	"sync"
	"time"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// DefaultTTL is how long recorded failures stay visible after the most
// recent Record call.
const DefaultTTL = 10 * time.Second

// Aggregator holds recent per-target write failures.
type Aggregator struct {
	mu sync.Mutex

	ttl    time.Duration
	errors []model.TargetError

	clearTimer *time.Timer
	clearSeq   uint64

	// onChange is invoked after every visible change (record or clear)
	// with the current error list.
	onChange func([]model.TargetError)
}

// NewAggregator creates an aggregator with the default TTL.
func NewAggregator() *Aggregator {
	return NewAggregatorWithTTL(DefaultTTL)
}

// NewAggregatorWithTTL creates an aggregator with a custom TTL.
func NewAggregatorWithTTL(ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Aggregator{ttl: ttl}
}

// OnChange sets a callback invoked with the current list after every record
// and clear. The callback runs outside the aggregator lock.
func (a *Aggregator) OnChange(fn func([]model.TargetError)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Record appends the failures, stamping any zero timestamps, and restarts
// the rolling auto-clear timer. Recording nothing is a no-op.
func (a *Aggregator) Record(errs []model.TargetError) {
	if len(errs) == 0 {
		return
	}

	now := time.Now()

	a.mu.Lock()
	for _, e := range errs {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		a.errors = append(a.errors, e)
	}
	a.restartTimerLocked()
	snapshot := a.snapshotLocked()
	notify := a.onChange
	a.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// Clear empties the list and cancels the timer immediately.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	a.clearSeq++
	if a.clearTimer != nil {
		a.clearTimer.Stop()
		a.clearTimer = nil
	}
	changed := len(a.errors) > 0
	a.errors = nil
	notify := a.onChange
	a.mu.Unlock()

	if changed && notify != nil {
		notify(nil)
	}
}

// Errors returns a snapshot of the current failure list.
func (a *Aggregator) Errors() []model.TargetError {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Count returns the number of visible failures.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

func (a *Aggregator) snapshotLocked() []model.TargetError {
	if len(a.errors) == 0 {
		return nil
	}
	out := make([]model.TargetError, len(a.errors))
	copy(out, a.errors)
	return out
}

// restartTimerLocked gives the whole collection a fresh TTL.
func (a *Aggregator) restartTimerLocked() {
	a.clearSeq++
	seq := a.clearSeq
	if a.clearTimer != nil {
		a.clearTimer.Stop()
	}
	a.clearTimer = time.AfterFunc(a.ttl, func() {
		a.expire(seq)
	})
}

func (a *Aggregator) expire(seq uint64) {
	a.mu.Lock()
	if a.clearSeq != seq {
		a.mu.Unlock()
		return
	}
	a.clearTimer = nil
	changed := len(a.errors) > 0
	a.errors = nil
	notify := a.onChange
	a.mu.Unlock()

	if changed && notify != nil {
		notify(nil)
	}
}
