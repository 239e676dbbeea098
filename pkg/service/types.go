package service

import (
	"errors"
	"time"

	"github.com/roomtone/roomtone-go/pkg/catalog"
	"github.com/roomtone/roomtone-go/pkg/coalesce"
	"github.com/roomtone/roomtone-go/pkg/events"
	"github.com/roomtone/roomtone-go/pkg/faults"
	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/zone"
)

// Service errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrAlreadyStarted   = errors.New("service already started")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrUnknownParameter = errors.New("unknown parameter")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a ControllerService.
type Config struct {
	// BaseURL is the appliance HTTP API base URL.
	BaseURL string

	// EventsURL is the push channel websocket URL. Empty disables the
	// channel; state then only changes through local writes.
	EventsURL string

	// Events tunes the push channel. Ignored when EventsURL is empty;
	// a zero value takes the channel defaults.
	Events events.Config

	// Write tunes the coalescing scheduler.
	Write coalesce.Config

	// FaultTTL is the rolling visibility window for propagation failures.
	FaultTTL time.Duration

	// Catalog tunes the station catalog cache.
	Catalog catalog.Config

	// SnapshotPath is the catalog snapshot file. Empty disables the
	// persistent tier.
	SnapshotPath string

	// Policy decides which operations replicate across zones.
	// Nil takes zone.DefaultPolicy.
	Policy zone.Policy

	// Logger receives client events. Nil disables logging.
	Logger log.Logger
}

// DefaultConfig returns a service configuration for the given appliance.
func DefaultConfig(baseURL, eventsURL string) Config {
	return Config{
		BaseURL:   baseURL,
		EventsURL: eventsURL,
		Write:     coalesce.DefaultConfig(),
		FaultTTL:  faults.DefaultTTL,
		Catalog:   catalog.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	return nil
}
