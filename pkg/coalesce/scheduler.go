package coalesce

import (
	"sync"
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
)

// Default scheduling delays.
const (
	// DefaultThrottleDelay is the minimum spacing between submit-driven
	// flushes for one key.
	DefaultThrottleDelay = 50 * time.Millisecond

	// DefaultFinalDelay bounds how long the newest value can stay unsent
	// under a continuous stream of edits.
	DefaultFinalDelay = 500 * time.Millisecond
)

// FlushFunc performs the network write for one key. It receives the value
// captured at flush time.
type FlushFunc func(key model.ParamKey, value any) error

// Config holds scheduler configuration.
type Config struct {
	// ThrottleDelay is the minimum spacing between submit-driven flushes.
	ThrottleDelay time.Duration

	// FinalDelay is the rolling deadline for the final flush.
	FinalDelay time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		ThrottleDelay: DefaultThrottleDelay,
		FinalDelay:    DefaultFinalDelay,
	}
}

// pendingWrite is the per-key descriptor holding the newest value and the
// named timer handles. It exists only while an edit session is live.
type pendingWrite struct {
	value any
	dirty bool

	throttleTimer *time.Timer
	throttleSeq   uint64

	finalTimer *time.Timer
	finalSeq   uint64
}

// Scheduler coalesces rapid parameter edits into rate-limited flushes.
// All timers are owned by the scheduler and torn down by Stop, so cleanup
// is total and testable.
type Scheduler struct {
	mu sync.Mutex

	config Config
	flush  FlushFunc
	logger log.Logger

	// pending holds the live edit descriptors by key.
	pending map[model.ParamKey]*pendingWrite

	// lastFlush survives descriptor teardown so the leading-edge check
	// spans edit sessions.
	lastFlush map[model.ParamKey]time.Time

	// lastValue is the newest submitted value per key, kept so Finalize
	// is idempotent after the descriptor is gone.
	lastValue map[model.ParamKey]any

	stopped bool
}

// NewScheduler creates a scheduler with default configuration.
func NewScheduler(flush FlushFunc, logger log.Logger) *Scheduler {
	return NewSchedulerWithConfig(DefaultConfig(), flush, logger)
}

// NewSchedulerWithConfig creates a scheduler with custom delays.
func NewSchedulerWithConfig(config Config, flush FlushFunc, logger log.Logger) *Scheduler {
	if config.ThrottleDelay <= 0 {
		config.ThrottleDelay = DefaultThrottleDelay
	}
	if config.FinalDelay <= 0 {
		config.FinalDelay = DefaultFinalDelay
	}
	return &Scheduler{
		config:    config,
		flush:     flush,
		logger:    log.OrNoop(logger),
		pending:   make(map[model.ParamKey]*pendingWrite),
		lastFlush: make(map[model.ParamKey]time.Time),
		lastValue: make(map[model.ParamKey]any),
	}
}

// Submit records value as the latest desired state for key and guarantees a
// flush carrying the latest value occurs within a bounded time window, even
// under continuous rapid calls.
func (s *Scheduler) Submit(key model.ParamKey, value any) {
	var doFlush func()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	p := s.pending[key]
	if p == nil {
		p = &pendingWrite{}
		s.pending[key] = p
	}
	p.value = value
	p.dirty = true
	s.lastValue[key] = value

	now := time.Now()
	elapsed := now.Sub(s.lastFlush[key])
	if elapsed >= s.config.ThrottleDelay {
		// Idle key: flush on the leading edge.
		doFlush = s.captureFlushLocked(key, p)
		s.cancelThrottleLocked(p)
	} else {
		s.scheduleThrottleLocked(key, p, s.config.ThrottleDelay-elapsed)
	}

	// The final flush deadline rolls forward on every submit.
	s.scheduleFinalLocked(key, p, s.config.FinalDelay)
	s.mu.Unlock()

	if doFlush != nil {
		doFlush()
	}
}

// Finalize ends the edit session for key: it cancels all pending timers and
// performs one last unconditional flush with the current value. Calling it
// twice sends twice, both carrying the same latest value. A key that was
// never submitted is a no-op.
func (s *Scheduler) Finalize(key model.ParamKey) {
	var doFlush func()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if p := s.pending[key]; p != nil {
		s.cancelThrottleLocked(p)
		s.cancelFinalLocked(p)
		delete(s.pending, key)
	}

	if value, ok := s.lastValue[key]; ok {
		s.lastFlush[key] = time.Now()
		doFlush = s.flushFunc(key, value)
	}
	s.mu.Unlock()

	if doFlush != nil {
		doFlush()
	}
}

// HasPending reports whether an edit session is live for key. The
// reconciliation layer uses this as its per-key guard against clobbering an
// in-flight local edit.
func (s *Scheduler) HasPending(key model.ParamKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// PendingCount returns the number of live edit sessions.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels all timers and drops all pending state. Submits after Stop
// are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, p := range s.pending {
		s.cancelThrottleLocked(p)
		s.cancelFinalLocked(p)
		delete(s.pending, key)
	}
}

// captureFlushLocked marks the descriptor clean, records the flush time, and
// returns the network call to run outside the lock.
func (s *Scheduler) captureFlushLocked(key model.ParamKey, p *pendingWrite) func() {
	value := p.value
	p.dirty = false
	s.lastFlush[key] = time.Now()
	return s.flushFunc(key, value)
}

// flushFunc wraps the flush callback with logging.
func (s *Scheduler) flushFunc(key model.ParamKey, value any) func() {
	return func() {
		if err := s.flush(key, value); err != nil {
			e := log.NewEvent(log.CategoryError)
			e.Target = string(key.Target)
			e.Param = key.Name
			e.Message = "flush failed"
			e.Err = err.Error()
			s.logger.Log(e)
			return
		}
		e := log.NewEvent(log.CategoryFlush)
		e.Direction = log.DirectionOut
		e.Target = string(key.Target)
		e.Param = key.Name
		s.logger.Log(e)
	}
}

func (s *Scheduler) scheduleThrottleLocked(key model.ParamKey, p *pendingWrite, d time.Duration) {
	p.throttleSeq++
	seq := p.throttleSeq
	if p.throttleTimer != nil {
		p.throttleTimer.Stop()
	}
	p.throttleTimer = time.AfterFunc(d, func() {
		s.onThrottle(key, seq)
	})
}

func (s *Scheduler) scheduleFinalLocked(key model.ParamKey, p *pendingWrite, d time.Duration) {
	p.finalSeq++
	seq := p.finalSeq
	if p.finalTimer != nil {
		p.finalTimer.Stop()
	}
	p.finalTimer = time.AfterFunc(d, func() {
		s.onFinal(key, seq)
	})
}

// cancelThrottleLocked stops the throttle timer and invalidates any callback
// already in flight.
func (s *Scheduler) cancelThrottleLocked(p *pendingWrite) {
	p.throttleSeq++
	if p.throttleTimer != nil {
		p.throttleTimer.Stop()
		p.throttleTimer = nil
	}
}

func (s *Scheduler) cancelFinalLocked(p *pendingWrite) {
	p.finalSeq++
	if p.finalTimer != nil {
		p.finalTimer.Stop()
		p.finalTimer = nil
	}
}

func (s *Scheduler) onThrottle(key model.ParamKey, seq uint64) {
	var doFlush func()

	s.mu.Lock()
	p := s.pending[key]
	if p == nil || p.throttleSeq != seq || s.stopped {
		s.mu.Unlock()
		return
	}
	p.throttleTimer = nil
	if p.dirty {
		doFlush = s.captureFlushLocked(key, p)
	}
	s.maybeReleaseLocked(key, p)
	s.mu.Unlock()

	if doFlush != nil {
		doFlush()
	}
}

func (s *Scheduler) onFinal(key model.ParamKey, seq uint64) {
	var doFlush func()

	s.mu.Lock()
	p := s.pending[key]
	if p == nil || p.finalSeq != seq || s.stopped {
		s.mu.Unlock()
		return
	}
	p.finalTimer = nil
	if p.dirty {
		doFlush = s.captureFlushLocked(key, p)
	}
	s.maybeReleaseLocked(key, p)
	s.mu.Unlock()

	if doFlush != nil {
		doFlush()
	}
}

// maybeReleaseLocked destroys the descriptor once it is clean and no timers
// remain, ending the edit session.
func (s *Scheduler) maybeReleaseLocked(key model.ParamKey, p *pendingWrite) {
	if !p.dirty && p.throttleTimer == nil && p.finalTimer == nil {
		delete(s.pending, key)
	}
}
