package zone

import (
	"context"
	"sync"
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
)

// WriteFunc issues the replicated write against one target.
type WriteFunc func(ctx context.Context, target model.TargetID) error

// Policy decides per operation whether an accepted write replicates to the
// rest of the zone.
type Policy map[model.Operation]bool

// DefaultPolicy propagates every parameter write, mute included.
func DefaultPolicy() Policy {
	return Policy{
		model.OpSetFilter:     true,
		model.OpResetFilters:  true,
		model.OpSetVolume:     true,
		model.OpSetMute:       true,
		model.OpSetCompressor: true,
		model.OpSetLoudness:   true,
		model.OpSetDelay:      true,
	}
}

// IndependentMutePolicy is the default policy with mute kept per device:
// some installations want each physical device's mute independent even
// inside a shared zone.
func IndependentMutePolicy() Policy {
	policy := DefaultPolicy()
	policy[model.OpSetMute] = false
	return policy
}

// Propagates reports whether op replicates across a zone. Operations absent
// from the policy do not propagate.
func (p Policy) Propagates(op model.Operation) bool {
	return p[op]
}

// Result reports the outcome of one propagation fan-out.
type Result struct {
	// Success is true when every replication write succeeded (or nothing
	// needed replicating).
	Success bool

	// Errors holds one entry per failed target.
	Errors []model.TargetError
}

// Propagator replicates accepted writes to the rest of a zone.
type Propagator struct {
	registry *Registry
	policy   Policy
	logger   log.Logger
}

// NewPropagator creates a propagator over the registry with the given
// policy. A nil policy falls back to DefaultPolicy.
func NewPropagator(registry *Registry, policy Policy, logger log.Logger) *Propagator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Propagator{
		registry: registry,
		policy:   policy,
		logger:   log.OrNoop(logger),
	}
}

// Propagate replicates an accepted write on source to every other member of
// its zone. Each member write runs concurrently and failures are collected
// per target; one member failing never stops the others. A source outside
// any zone, a zone below two members, or an operation whose policy disables
// propagation all no-op and report success.
func (p *Propagator) Propagate(ctx context.Context, source model.TargetID, op model.Operation, write WriteFunc) Result {
	if !p.policy.Propagates(op) {
		return Result{Success: true}
	}

	zone := p.registry.ZoneOf(source)
	if zone == nil || len(zone.Members) < 2 {
		return Result{Success: true}
	}

	others := zone.Others(source)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []model.TargetError
	)
	for _, target := range others {
		wg.Add(1)
		go func(target model.TargetID) {
			defer wg.Done()
			if err := write(ctx, target); err != nil {
				p.logger.Log(log.ErrorEvent(string(target), string(op), err))
				mu.Lock()
				errs = append(errs, model.TargetError{
					Target:    target,
					Operation: op,
					Message:   err.Error(),
					Timestamp: time.Now(),
				})
				mu.Unlock()
			}
		}(target)
	}
	wg.Wait()

	return Result{Success: len(errs) == 0, Errors: errs}
}
