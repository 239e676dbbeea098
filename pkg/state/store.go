package state

import (
	"reflect"
	"sync"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// Value is a two-phase parameter value.
type Value struct {
	// Confirmed is the last server-acknowledged value.
	Confirmed any

	// Optimistic is a locally accepted value awaiting its echo.
	// Valid only when HasOptimistic is true.
	Optimistic any

	// HasOptimistic indicates an optimistic value is in effect.
	HasOptimistic bool
}

// Current returns the visible value: the optimistic one while it exists,
// otherwise the confirmed one.
func (v Value) Current() any {
	if v.HasOptimistic {
		return v.Optimistic
	}
	return v.Confirmed
}

// Subscriber receives the new visible value after every visible change.
type Subscriber func(key model.ParamKey, value any)

// Store is the explicit observable parameter store.
type Store struct {
	mu sync.Mutex

	values map[model.ParamKey]Value

	subscribers map[uint64]Subscriber
	nextSubID   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		values:      make(map[model.ParamKey]Value),
		subscribers: make(map[uint64]Subscriber),
	}
}

// Get returns the visible value for key.
func (s *Store) Get(key model.ParamKey) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return v.Current(), true
}

// Value returns the full two-phase record for key.
func (s *Store) Value(key model.ParamKey) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok
}

// SetOptimistic records a locally accepted write. The visible value changes
// immediately; the confirmed value is untouched until the echo arrives.
func (s *Store) SetOptimistic(key model.ParamKey, value any) {
	s.mu.Lock()
	v := s.values[key]
	changed := !valuesEqual(v.Current(), value)
	v.Optimistic = value
	v.HasOptimistic = true
	s.values[key] = v
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, key, value)
	}
}

// Confirm records a server-acknowledged value and clears any optimistic
// overlay. Subscribers are notified only if the visible value changed.
func (s *Store) Confirm(key model.ParamKey, value any) {
	s.mu.Lock()
	v := s.values[key]
	before := v.Current()
	v.Confirmed = value
	v.Optimistic = nil
	v.HasOptimistic = false
	s.values[key] = v
	changed := !valuesEqual(before, value)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, key, value)
	}
}

// RevertOptimistic drops the optimistic overlay, falling back to the last
// confirmed value. Used when the confirming write ultimately fails.
func (s *Store) RevertOptimistic(key model.ParamKey) {
	s.mu.Lock()
	v, ok := s.values[key]
	if !ok || !v.HasOptimistic {
		s.mu.Unlock()
		return
	}
	before := v.Current()
	v.Optimistic = nil
	v.HasOptimistic = false
	s.values[key] = v
	changed := !valuesEqual(before, v.Confirmed)
	confirmed := v.Confirmed
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, key, confirmed)
	}
}

// Subscribe registers a subscriber and returns its removal function.
// Subscribers run outside the store lock, in no particular order.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Keys returns all keys with a stored value.
func (s *Store) Keys() []model.ParamKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]model.ParamKey, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []Subscriber, key model.ParamKey, value any) {
	for _, fn := range subs {
		fn(key, value)
	}
}

// valuesEqual compares two parameter values. Scalars compare directly;
// record types (filter bands, dynamics settings) fall back to a deep
// comparison.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	}

	return reflect.DeepEqual(a, b)
}
