package model

import (
	"fmt"
	"time"
)

// Well-known parameter names.
const (
	ParamVolume     = "volume"
	ParamMute       = "mute"
	ParamCompressor = "compressor"
	ParamLoudness   = "loudness"
	ParamDelay      = "delay"
)

// FilterParam returns the parameter name for an equalizer band,
// e.g. FilterParam(0) == "eq_band_00".
func FilterParam(band int) string {
	return fmt.Sprintf("eq_band_%02d", band)
}

// ParamKey addresses one parameter value on one target.
// It is comparable and used as a map key throughout the client.
type ParamKey struct {
	Target TargetID
	Name   string
}

// String returns "target/name" for logging.
func (k ParamKey) String() string {
	return string(k.Target) + "/" + k.Name
}

// FilterType identifies the transfer function of an equalizer band.
type FilterType string

// Supported filter types.
const (
	FilterPeaking   FilterType = "peaking"
	FilterLowShelf  FilterType = "low_shelf"
	FilterHighShelf FilterType = "high_shelf"
	FilterLowPass   FilterType = "low_pass"
	FilterHighPass  FilterType = "high_pass"
	FilterNotch     FilterType = "notch"
)

// FilterBand is one equalizer filter.
type FilterBand struct {
	// ID is the band identifier, e.g. "eq_band_03".
	ID string `json:"id"`

	// Frequency is the center/corner frequency in Hz.
	Frequency float64 `json:"frequency"`

	// Gain is the boost/cut in dB.
	Gain float64 `json:"gain"`

	// Q is the quality factor (bandwidth).
	Q float64 `json:"q"`

	// Type selects the transfer function.
	Type FilterType `json:"filter_type"`

	// Enabled indicates the band participates in processing.
	Enabled bool `json:"enabled"`
}

// Volume is a playback volume in dB full scale.
type Volume struct {
	Db float64 `json:"volume_db"`
}

// MuteState is the mute flag of one device.
type MuteState struct {
	Muted bool `json:"muted"`
}

// CompressorSettings configures the output compressor.
type CompressorSettings struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold_db"`
	Ratio     float64 `json:"ratio"`
	Attack    float64 `json:"attack_ms"`
	Release   float64 `json:"release_ms"`
}

// LoudnessSettings configures equal-loudness compensation.
type LoudnessSettings struct {
	Enabled bool    `json:"enabled"`
	Gain    float64 `json:"gain_db"`
}

// DelaySettings configures the output delay stage.
type DelaySettings struct {
	Enabled bool    `json:"enabled"`
	Millis  float64 `json:"delay_ms"`
}

// DeviceStatus is the summary state reported by one device.
type DeviceStatus struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Model    string  `json:"model"`
	Firmware string  `json:"firmware"`
	VolumeDb float64 `json:"volume_db"`
	Muted    bool    `json:"muted"`
	ZoneID   string  `json:"zone_id,omitempty"`
}

// Operation names a write operation for propagation policy and
// error reporting.
type Operation string

// Write operations.
const (
	OpSetFilter     Operation = "set_filter"
	OpResetFilters  Operation = "reset_filters"
	OpSetVolume     Operation = "set_volume"
	OpSetMute       Operation = "set_mute"
	OpSetCompressor Operation = "set_compressor"
	OpSetLoudness   Operation = "set_loudness"
	OpSetDelay      Operation = "set_delay"
)

// TargetError records a failed write against one target.
type TargetError struct {
	// Target is the device the write was addressed to.
	Target TargetID

	// Operation is the write that failed.
	Operation Operation

	// Message is the failure description.
	Message string

	// Timestamp is when the failure was recorded.
	Timestamp time.Time
}

// Error implements the error interface.
func (e TargetError) Error() string {
	return fmt.Sprintf("%s on %s: %s", e.Operation, e.Target, e.Message)
}
