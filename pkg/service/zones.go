package service

import (
	"context"

	"github.com/roomtone/roomtone-go/pkg/api"
	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/zone"
)

// CreateZone links the given devices into a new zone on the appliance and
// mirrors it locally. The source member's current values seed the others.
func (s *ControllerService) CreateZone(ctx context.Context, name string, members []model.TargetID, source model.TargetID) (*zone.Zone, error) {
	if len(members) < 2 {
		return nil, zone.ErrTooFewMembers
	}

	zoneID, err := s.client.CreateZone(ctx, api.ZoneRequest{
		ClientIDs: targetStrings(members),
		Name:      name,
		Source:    string(source),
	})
	if err != nil {
		return nil, err
	}

	return s.zones.Adopt(zone.Zone{
		ID:      zoneID,
		Name:    name,
		Members: members,
		Source:  source,
	})
}

// ReplaceZoneMembers swaps a zone's membership wholesale.
func (s *ControllerService) ReplaceZoneMembers(ctx context.Context, zoneID string, members []model.TargetID) error {
	err := s.client.ReplaceZoneMembers(ctx, zoneID, api.ZoneRequest{
		ClientIDs: targetStrings(members),
	})
	if err != nil {
		return err
	}
	return s.zones.ReplaceMembers(zoneID, members)
}

// RemoveZoneMember unlinks one device from its zone.
func (s *ControllerService) RemoveZoneMember(ctx context.Context, zoneID string, target model.TargetID) error {
	if err := s.client.RemoveZoneMember(ctx, zoneID, target); err != nil {
		return err
	}
	return s.zones.RemoveMember(zoneID, target)
}

// DeleteZone dissolves a zone outright.
func (s *ControllerService) DeleteZone(ctx context.Context, zoneID string) error {
	if err := s.client.DeleteZone(ctx, zoneID); err != nil {
		return err
	}
	return s.zones.Dissolve(zoneID)
}

// RenameZone changes a zone's display name.
func (s *ControllerService) RenameZone(ctx context.Context, zoneID, name string) error {
	if err := s.client.RenameZone(ctx, zoneID, name); err != nil {
		return err
	}
	return s.zones.Rename(zoneID, name)
}

// Zones returns all known zones.
func (s *ControllerService) Zones() []*zone.Zone {
	return s.zones.All()
}

// ZoneOf returns the zone containing target, or nil if it is unlinked.
func (s *ControllerService) ZoneOf(target model.TargetID) *zone.Zone {
	return s.zones.ZoneOf(target)
}

func targetStrings(targets []model.TargetID) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = string(t)
	}
	return out
}
