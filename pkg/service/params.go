package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/zone"
)

// SetFilterBand records a live edit of one equalizer band. The value is
// visible immediately as an optimistic update; the network write is
// coalesced by the scheduler.
func (s *ControllerService) SetFilterBand(target model.TargetID, band model.FilterBand) {
	key := model.ParamKey{Target: target, Name: band.ID}
	s.store.SetOptimistic(key, band)
	s.scheduler.Submit(key, band)
}

// EndFilterEdit ends the edit session for one band, flushing the final
// value without waiting out the scheduler delays.
func (s *ControllerService) EndFilterEdit(target model.TargetID, bandID string) {
	s.scheduler.Finalize(model.ParamKey{Target: target, Name: bandID})
}

// SetVolume records a live volume edit in dB.
func (s *ControllerService) SetVolume(target model.TargetID, db float64) {
	key := model.ParamKey{Target: target, Name: model.ParamVolume}
	value := model.Volume{Db: db}
	s.store.SetOptimistic(key, value)
	s.scheduler.Submit(key, value)
}

// EndVolumeEdit ends a volume edit session.
func (s *ControllerService) EndVolumeEdit(target model.TargetID) {
	s.scheduler.Finalize(model.ParamKey{Target: target, Name: model.ParamVolume})
}

// SetMute writes the mute flag. An idle key flushes on the leading edge, so
// a single toggle reaches the network immediately; rapid toggles coalesce.
func (s *ControllerService) SetMute(target model.TargetID, muted bool) {
	key := model.ParamKey{Target: target, Name: model.ParamMute}
	s.store.SetOptimistic(key, muted)
	s.scheduler.Submit(key, muted)
}

// SetCompressor writes the compressor settings of one device.
func (s *ControllerService) SetCompressor(target model.TargetID, settings model.CompressorSettings) {
	key := model.ParamKey{Target: target, Name: model.ParamCompressor}
	s.store.SetOptimistic(key, settings)
	s.scheduler.Submit(key, settings)
}

// SetLoudness writes the loudness compensation settings of one device.
func (s *ControllerService) SetLoudness(target model.TargetID, settings model.LoudnessSettings) {
	key := model.ParamKey{Target: target, Name: model.ParamLoudness}
	s.store.SetOptimistic(key, settings)
	s.scheduler.Submit(key, settings)
}

// SetDelay writes the output delay settings of one device.
func (s *ControllerService) SetDelay(target model.TargetID, settings model.DelaySettings) {
	key := model.ParamKey{Target: target, Name: model.ParamDelay}
	s.store.SetOptimistic(key, settings)
	s.scheduler.Submit(key, settings)
}

// ResetFilters restores all bands of one device to defaults and replicates
// the reset across its zone. The refreshed band values arrive back through
// the push channel.
func (s *ControllerService) ResetFilters(ctx context.Context, target model.TargetID) error {
	if err := s.client.ResetFilters(ctx, target); err != nil {
		return err
	}

	result := s.propagator.Propagate(ctx, target, model.OpResetFilters, func(ctx context.Context, member model.TargetID) error {
		return s.client.ResetFilters(ctx, member)
	})
	if !result.Success {
		s.faults.Record(result.Errors)
	}
	return nil
}

// flush is the scheduler's flush callback: it performs the network write
// for one key with the value captured at flush time, then fans the accepted
// write out to the rest of the target's zone.
//
// A failed source write reverts the optimistic value to the last confirmed
// one and records a fault. Fan-out failures are recorded per target and
// never revoke the source write.
func (s *ControllerService) flush(key model.ParamKey, value any) error {
	op, write, err := s.writeOp(key, value)
	if err != nil {
		return err
	}
	ctx := s.runCtx()

	if err := write(ctx, key.Target); err != nil {
		if ctx.Err() == nil {
			s.store.RevertOptimistic(key)
			s.faults.Record([]model.TargetError{{
				Target:    key.Target,
				Operation: op,
				Message:   err.Error(),
			}})
		}
		return err
	}

	result := s.propagator.Propagate(ctx, key.Target, op, func(ctx context.Context, member model.TargetID) error {
		if err := write(ctx, member); err != nil {
			return err
		}
		s.store.SetOptimistic(model.ParamKey{Target: member, Name: key.Name}, value)
		return nil
	})
	if !result.Success {
		s.faults.Record(result.Errors)
	}
	return nil
}

// writeOp resolves a parameter key and value to the operation name and the
// API write, reusable against any target for zone fan-out.
func (s *ControllerService) writeOp(key model.ParamKey, value any) (model.Operation, zone.WriteFunc, error) {
	switch {
	case key.Name == model.ParamVolume:
		vol, ok := value.(model.Volume)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetVolume, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetVolume(ctx, t, vol)
		}, nil

	case key.Name == model.ParamMute:
		muted, ok := value.(bool)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetMute, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetMute(ctx, t, muted)
		}, nil

	case strings.HasPrefix(key.Name, "eq_band_"):
		band, ok := value.(model.FilterBand)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetFilter, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetFilter(ctx, t, band)
		}, nil

	case key.Name == model.ParamCompressor:
		settings, ok := value.(model.CompressorSettings)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetCompressor, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetCompressor(ctx, t, settings)
		}, nil

	case key.Name == model.ParamLoudness:
		settings, ok := value.(model.LoudnessSettings)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetLoudness, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetLoudness(ctx, t, settings)
		}, nil

	case key.Name == model.ParamDelay:
		settings, ok := value.(model.DelaySettings)
		if !ok {
			return "", nil, fmt.Errorf("unexpected value type %T for %s", value, key.Name)
		}
		return model.OpSetDelay, func(ctx context.Context, t model.TargetID) error {
			return s.client.SetDelay(ctx, t, settings)
		}, nil

	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownParameter, key.Name)
	}
}
