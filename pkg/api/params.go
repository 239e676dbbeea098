package api

import (
	"context"
	"net/url"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// DeviceStatus reads the summary state of one target.
func (c *Client) DeviceStatus(ctx context.Context, target model.TargetID) (model.DeviceStatus, error) {
	var status model.DeviceStatus
	err := c.doJSON(ctx, "GET", targetPath(target, "/status"), nil, &status)
	c.logRequest(target, "status", err)
	return status, err
}

// Filters reads the full equalizer filter list of one target.
func (c *Client) Filters(ctx context.Context, target model.TargetID) ([]model.FilterBand, error) {
	var reply struct {
		Filters []model.FilterBand `json:"filters"`
	}
	err := c.doJSON(ctx, "GET", targetPath(target, "/filters"), nil, &reply)
	c.logRequest(target, "filters", err)
	return reply.Filters, err
}

// SetFilter writes one equalizer band, addressed by the band's ID.
func (c *Client) SetFilter(ctx context.Context, target model.TargetID, band model.FilterBand) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/filters/"+url.PathEscape(band.ID)), band)
	c.logRequest(target, model.OpSetFilter, err)
	return err
}

// ResetFilters restores all equalizer bands of one target to defaults.
func (c *Client) ResetFilters(ctx context.Context, target model.TargetID) error {
	err := c.doWrite(ctx, "POST", targetPath(target, "/filters/reset"), nil)
	c.logRequest(target, model.OpResetFilters, err)
	return err
}

// Mute reads the mute flag of one target.
func (c *Client) Mute(ctx context.Context, target model.TargetID) (bool, error) {
	var state model.MuteState
	err := c.doJSON(ctx, "GET", targetPath(target, "/mute"), nil, &state)
	c.logRequest(target, "mute", err)
	return state.Muted, err
}

// SetMute writes the mute flag of one target.
func (c *Client) SetMute(ctx context.Context, target model.TargetID, muted bool) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/mute"), model.MuteState{Muted: muted})
	c.logRequest(target, model.OpSetMute, err)
	return err
}

// Volume reads the volume of one target in dB.
func (c *Client) Volume(ctx context.Context, target model.TargetID) (model.Volume, error) {
	var vol model.Volume
	err := c.doJSON(ctx, "GET", targetPath(target, "/volume"), nil, &vol)
	c.logRequest(target, "volume", err)
	return vol, err
}

// SetVolume writes the volume of one target.
func (c *Client) SetVolume(ctx context.Context, target model.TargetID, vol model.Volume) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/volume"), vol)
	c.logRequest(target, model.OpSetVolume, err)
	return err
}

// Compressor reads the compressor settings of one target.
func (c *Client) Compressor(ctx context.Context, target model.TargetID) (model.CompressorSettings, error) {
	var settings model.CompressorSettings
	err := c.doJSON(ctx, "GET", targetPath(target, "/compressor"), nil, &settings)
	c.logRequest(target, "compressor", err)
	return settings, err
}

// SetCompressor writes the compressor settings of one target.
func (c *Client) SetCompressor(ctx context.Context, target model.TargetID, settings model.CompressorSettings) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/compressor"), settings)
	c.logRequest(target, model.OpSetCompressor, err)
	return err
}

// Loudness reads the loudness compensation settings of one target.
func (c *Client) Loudness(ctx context.Context, target model.TargetID) (model.LoudnessSettings, error) {
	var settings model.LoudnessSettings
	err := c.doJSON(ctx, "GET", targetPath(target, "/loudness"), nil, &settings)
	c.logRequest(target, "loudness", err)
	return settings, err
}

// SetLoudness writes the loudness compensation settings of one target.
func (c *Client) SetLoudness(ctx context.Context, target model.TargetID, settings model.LoudnessSettings) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/loudness"), settings)
	c.logRequest(target, model.OpSetLoudness, err)
	return err
}

// Delay reads the output delay settings of one target.
func (c *Client) Delay(ctx context.Context, target model.TargetID) (model.DelaySettings, error) {
	var settings model.DelaySettings
	err := c.doJSON(ctx, "GET", targetPath(target, "/delay"), nil, &settings)
	c.logRequest(target, "delay", err)
	return settings, err
}

// SetDelay writes the output delay settings of one target.
func (c *Client) SetDelay(ctx context.Context, target model.TargetID, settings model.DelaySettings) error {
	err := c.doWrite(ctx, "PUT", targetPath(target, "/delay"), settings)
	c.logRequest(target, model.OpSetDelay, err)
	return err
}
