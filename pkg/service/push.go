package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roomtone/roomtone-go/pkg/events"
	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/zone"
)

// subscribePushEvents routes the push channel into the reconciliation layer.
func (s *ControllerService) subscribePushEvents() {
	s.channel.Subscribe(events.TypeParamChanged, s.handleParamChanged)
	s.channel.Subscribe(events.TypeFiltersReset, s.handleFiltersReset)
	s.channel.Subscribe(events.TypeMuteChanged, s.handleMuteChanged)
	s.channel.Subscribe(events.TypeZoneChanged, s.handleZoneChanged)
	s.channel.Subscribe(events.TypeReachabilityChanged, s.handleReachabilityChanged)
	s.channel.OnConnect(s.handleChannelConnect)
	s.channel.OnOffline(func() {
		e := log.NewEvent(log.CategoryState)
		e.Message = "push channel offline"
		s.logger.Log(e)
	})
}

func (s *ControllerService) handleParamChanged(ev events.Event) {
	var payload events.ParamChangePayload
	if err := events.DecodePayload(ev, &payload); err != nil || payload.Param == "" {
		s.logger.Log(log.WarnEvent("param_changed event with malformed payload"))
		return
	}

	value, err := decodeParamValue(payload.Param, payload.Value)
	if err != nil {
		s.logger.Log(log.WarnEvent(fmt.Sprintf("param_changed %s: %v", payload.Param, err)))
		return
	}

	key := model.ParamKey{
		Target: model.NormalizeTargetID(ev.Source),
		Name:   payload.Param,
	}
	s.reconciler.ApplyRemoteUpdate(key, value)
}

func (s *ControllerService) handleMuteChanged(ev events.Event) {
	var payload events.MuteChangePayload
	if err := events.DecodePayload(ev, &payload); err != nil {
		s.logger.Log(log.WarnEvent("mute_changed event with malformed payload"))
		return
	}

	key := model.ParamKey{
		Target: model.NormalizeTargetID(ev.Source),
		Name:   model.ParamMute,
	}
	s.reconciler.ApplyRemoteUpdate(key, payload.Muted)
}

// handleFiltersReset refetches the source device's bands; the fresh values
// merge through the reconciler so live edits still win.
func (s *ControllerService) handleFiltersReset(ev events.Event) {
	target := model.NormalizeTargetID(ev.Source)
	go s.syncFilters(s.runCtx(), target)
}

func (s *ControllerService) handleZoneChanged(ev events.Event) {
	var payload events.ZoneChangePayload
	if err := events.DecodePayload(ev, &payload); err != nil || payload.ZoneID == "" {
		s.logger.Log(log.WarnEvent("zone_changed event with malformed payload"))
		return
	}

	if payload.Deleted {
		if err := s.zones.Dissolve(payload.ZoneID); err != nil {
			s.logger.Log(log.WarnEvent(fmt.Sprintf("zone %s dissolve: %v", payload.ZoneID, err)))
		}
		return
	}

	members := make([]model.TargetID, 0, len(payload.Members))
	for _, m := range payload.Members {
		members = append(members, model.NormalizeTargetID(m))
	}

	// The appliance already resolved membership, so the mirror is
	// unconditional: members moving in are released from their old zone.
	s.zones.Mirror(zone.Zone{
		ID:      payload.ZoneID,
		Name:    payload.Name,
		Members: members,
		Source:  model.NormalizeTargetID(payload.Source),
	})
}

func (s *ControllerService) handleReachabilityChanged(ev events.Event) {
	var payload events.ReachabilityPayload
	if err := events.DecodePayload(ev, &payload); err != nil {
		s.logger.Log(log.WarnEvent("reachability_changed event with malformed payload"))
		return
	}
	s.setTargetReachable(model.NormalizeTargetID(ev.Source), payload.Reachable)
}

// handleChannelConnect resyncs device state after every (re)connect: any
// change pushed while the channel was down would otherwise be lost.
func (s *ControllerService) handleChannelConnect(connectionID string) {
	ctx := s.runCtx()
	go func() {
		for _, t := range s.Targets() {
			if !t.Reachable {
				continue
			}
			s.syncTarget(ctx, t.ID)
		}
	}()
}

// syncTarget pulls one device's parameters and merges them through the
// reconciler.
func (s *ControllerService) syncTarget(ctx context.Context, target model.TargetID) {
	if vol, err := s.client.Volume(ctx, target); err == nil {
		s.reconciler.ApplyRemoteUpdate(model.ParamKey{Target: target, Name: model.ParamVolume}, vol)
	}
	if muted, err := s.client.Mute(ctx, target); err == nil {
		s.reconciler.ApplyRemoteUpdate(model.ParamKey{Target: target, Name: model.ParamMute}, muted)
	}
	s.syncFilters(ctx, target)
}

func (s *ControllerService) syncFilters(ctx context.Context, target model.TargetID) {
	bands, err := s.client.Filters(ctx, target)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Log(log.ErrorEvent(string(target), "sync_filters", err))
		}
		return
	}
	for _, band := range bands {
		s.reconciler.ApplyRemoteUpdate(model.ParamKey{Target: target, Name: band.ID}, band)
	}
}

// decodeParamValue turns a pushed raw value into the typed form the write
// path uses, so echo comparison works across both directions.
func decodeParamValue(param string, raw json.RawMessage) (any, error) {
	switch {
	case param == model.ParamVolume:
		var vol model.Volume
		if err := json.Unmarshal(raw, &vol); err == nil {
			return vol, nil
		}
		// Some firmware pushes the bare number.
		var db float64
		if err := json.Unmarshal(raw, &db); err != nil {
			return nil, err
		}
		return model.Volume{Db: db}, nil

	case param == model.ParamMute:
		var muted bool
		if err := json.Unmarshal(raw, &muted); err == nil {
			return muted, nil
		}
		var state model.MuteState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, err
		}
		return state.Muted, nil

	case strings.HasPrefix(param, "eq_band_"):
		var band model.FilterBand
		if err := json.Unmarshal(raw, &band); err != nil {
			return nil, err
		}
		if band.ID == "" {
			band.ID = param
		}
		return band, nil

	case param == model.ParamCompressor:
		var settings model.CompressorSettings
		err := json.Unmarshal(raw, &settings)
		return settings, err

	case param == model.ParamLoudness:
		var settings model.LoudnessSettings
		err := json.Unmarshal(raw, &settings)
		return settings, err

	case param == model.ParamDelay:
		var settings model.DelaySettings
		err := json.Unmarshal(raw, &settings)
		return settings, err

	default:
		var value any
		err := json.Unmarshal(raw, &value)
		return value, err
	}
}
