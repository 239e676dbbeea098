package log

import (
	"time"
)

// Event represents a client log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"2,keyasint"`

	// Direction indicates message flow, where applicable.
	Direction Direction `cbor:"3,keyasint,omitempty"`

	// Target is the normalized device key the event concerns.
	Target string `cbor:"4,keyasint,omitempty"`

	// Operation is the write operation name, for request/flush events.
	Operation string `cbor:"5,keyasint,omitempty"`

	// Param is the parameter key the event concerns.
	Param string `cbor:"6,keyasint,omitempty"`

	// Message is a short human-readable description.
	Message string `cbor:"7,keyasint,omitempty"`

	// Err is the error text for failure events.
	Err string `cbor:"8,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionNone is for events without a network direction.
	DirectionNone Direction = 0
	// DirectionOut indicates an outgoing request.
	DirectionOut Direction = 1
	// DirectionIn indicates an incoming push event or response.
	DirectionIn Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	default:
		return "NONE"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryRequest is an HTTP request/response exchange.
	CategoryRequest Category = 0
	// CategoryPush is an event received on the push channel.
	CategoryPush Category = 1
	// CategoryFlush is a coalesced write flush.
	CategoryFlush Category = 2
	// CategoryCache is a catalog cache transition.
	CategoryCache Category = 3
	// CategoryState is a local state or reconciliation change.
	CategoryState Category = 4
	// CategoryError is a failure at any layer.
	CategoryError Category = 5
	// CategoryWarning is a recoverable anomaly, e.g. malformed push data.
	CategoryWarning Category = 6
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRequest:
		return "REQUEST"
	case CategoryPush:
		return "PUSH"
	case CategoryFlush:
		return "FLUSH"
	case CategoryCache:
		return "CACHE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// NewEvent creates an event of the given category, timestamped now.
func NewEvent(category Category) Event {
	return Event{Timestamp: time.Now(), Category: category}
}

// ErrorEvent creates a CategoryError event for a target operation.
func ErrorEvent(target, operation string, err error) Event {
	e := NewEvent(CategoryError)
	e.Target = target
	e.Operation = operation
	if err != nil {
		e.Err = err.Error()
	}
	return e
}

// WarnEvent creates a CategoryWarning event with a message.
func WarnEvent(message string) Event {
	e := NewEvent(CategoryWarning)
	e.Message = message
	return e
}
