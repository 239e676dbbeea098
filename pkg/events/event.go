package events

import (
	"encoding/json"
	"errors"
	"time"
)

// Event types pushed by the appliance.
const (
	// TypeParamChanged announces a new value for a single parameter.
	TypeParamChanged = "param_changed"
	// TypeFiltersReset announces that all filter bands of a device were reset.
	TypeFiltersReset = "filters_reset"
	// TypeMuteChanged announces a mute state change.
	TypeMuteChanged = "mute_changed"
	// TypeZoneChanged announces a zone membership change or dissolution.
	TypeZoneChanged = "zone_changed"
	// TypeReachabilityChanged announces a device appearing or disappearing.
	TypeReachabilityChanged = "reachability_changed"
)

// Event is a single push message from the appliance.
type Event struct {
	// Category groups related event types, e.g. "state" or "topology".
	Category string `json:"category,omitempty"`

	// Type identifies the event, see the Type constants.
	Type string `json:"type"`

	// Source is the device key the event concerns, empty for global events.
	Source string `json:"source,omitempty"`

	// Data is the type-specific payload, decoded lazily by the handler.
	Data json.RawMessage `json:"data,omitempty"`

	// Timestamp is the server-side event time.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ParamChangePayload is the Data of a TypeParamChanged event.
type ParamChangePayload struct {
	Param string          `json:"param"`
	Value json.RawMessage `json:"value"`
}

// MuteChangePayload is the Data of a TypeMuteChanged event.
type MuteChangePayload struct {
	Muted bool `json:"muted"`
}

// ZoneChangePayload is the Data of a TypeZoneChanged event.
type ZoneChangePayload struct {
	ZoneID  string   `json:"zone_id"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
	Source  string   `json:"source,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

// ReachabilityPayload is the Data of a TypeReachabilityChanged event.
type ReachabilityPayload struct {
	Reachable bool `json:"reachable"`
}

// ErrNoPayload is returned by DecodePayload for an event without Data.
var ErrNoPayload = errors.New("event has no payload")

// DecodePayload decodes an event's Data into the given payload struct.
func DecodePayload(event Event, payload any) error {
	if len(event.Data) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(event.Data, payload)
}
