package zone

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// Registry tracks zone membership for all known targets.
// Invariant: a target belongs to at most one zone at a time.
type Registry struct {
	mu sync.RWMutex

	// zones holds all zones keyed by zone ID.
	zones map[string]*Zone

	// membership maps each linked target to its zone ID.
	membership map[model.TargetID]string

	// callbacks for zone events.
	onZoneChanged   func(zone *Zone)
	onZoneDissolved func(zoneID string)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		zones:      make(map[string]*Zone),
		membership: make(map[model.TargetID]string),
	}
}

// Create forms a new zone with the given members and returns it.
// Returns ErrTooFewMembers for fewer than two members and ErrAlreadyLinked
// if any member already belongs to another zone.
func (r *Registry) Create(name string, members []model.TargetID, source model.TargetID) (*Zone, error) {
	if len(members) < 2 {
		return nil, ErrTooFewMembers
	}

	r.mu.Lock()
	for _, m := range members {
		if _, linked := r.membership[m]; linked {
			r.mu.Unlock()
			return nil, ErrAlreadyLinked
		}
	}

	zone := &Zone{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   append([]model.TargetID(nil), members...),
		Source:    source,
		CreatedAt: time.Now(),
	}
	r.zones[zone.ID] = zone
	for _, m := range members {
		r.membership[m] = zone.ID
	}
	changed := r.onZoneChanged
	snapshot := zone.clone()
	r.mu.Unlock()

	if changed != nil {
		changed(snapshot)
	}
	return snapshot, nil
}

// Adopt inserts a zone under a server-assigned ID, e.g. after the appliance
// confirms creation or announces a zone formed elsewhere. Members must not
// belong to a different zone.
func (r *Registry) Adopt(zone Zone) (*Zone, error) {
	r.mu.Lock()
	if _, exists := r.zones[zone.ID]; exists {
		r.mu.Unlock()
		return nil, ErrZoneExists
	}
	for _, m := range zone.Members {
		if _, linked := r.membership[m]; linked {
			r.mu.Unlock()
			return nil, ErrAlreadyLinked
		}
	}

	adopted := zone.clone()
	if adopted.CreatedAt.IsZero() {
		adopted.CreatedAt = time.Now()
	}
	r.zones[adopted.ID] = adopted
	for _, m := range adopted.Members {
		r.membership[m] = adopted.ID
	}
	changed := r.onZoneChanged
	snapshot := adopted.clone()
	r.mu.Unlock()

	if changed != nil {
		changed(snapshot)
	}
	return snapshot, nil
}

// Mirror applies a server-pushed zone as authoritative: the zone is created
// or updated in place, and members moving in are released from whichever
// zone previously held them. Zones the move drained are kept; the appliance
// pushes their dissolution separately when it applies. Unlike Adopt and
// ReplaceMembers, Mirror never rejects a membership conflict, because the
// server has already resolved it.
func (r *Registry) Mirror(zone Zone) *Zone {
	r.mu.Lock()

	var drained []*Zone
	for _, m := range zone.Members {
		prevID, linked := r.membership[m]
		if !linked || prevID == zone.ID {
			continue
		}
		if prev := r.zones[prevID]; prev != nil {
			prev.Members = prev.Others(m)
			drained = append(drained, prev.clone())
		}
		delete(r.membership, m)
	}

	mirrored, exists := r.zones[zone.ID]
	if exists {
		for _, m := range mirrored.Members {
			delete(r.membership, m)
		}
		mirrored.Members = append([]model.TargetID(nil), zone.Members...)
		if zone.Name != "" {
			mirrored.Name = zone.Name
		}
		if zone.Source != "" {
			mirrored.Source = zone.Source
		}
	} else {
		mirrored = zone.clone()
		if mirrored.CreatedAt.IsZero() {
			mirrored.CreatedAt = time.Now()
		}
		r.zones[mirrored.ID] = mirrored
	}
	for _, m := range mirrored.Members {
		r.membership[m] = mirrored.ID
	}

	changed := r.onZoneChanged
	snapshot := mirrored.clone()
	r.mu.Unlock()

	if changed != nil {
		for _, z := range drained {
			changed(z)
		}
		changed(snapshot)
	}
	return snapshot
}

// ReplaceMembers swaps a zone's membership wholesale, keeping its identity.
// Members moving in must not belong to a different zone.
func (r *Registry) ReplaceMembers(zoneID string, members []model.TargetID) error {
	r.mu.Lock()
	zone, exists := r.zones[zoneID]
	if !exists {
		r.mu.Unlock()
		return ErrZoneNotFound
	}
	for _, m := range members {
		if linked, ok := r.membership[m]; ok && linked != zoneID {
			r.mu.Unlock()
			return ErrAlreadyLinked
		}
	}

	for _, m := range zone.Members {
		delete(r.membership, m)
	}
	zone.Members = append([]model.TargetID(nil), members...)
	for _, m := range members {
		r.membership[m] = zoneID
	}
	changed := r.onZoneChanged
	snapshot := zone.clone()
	r.mu.Unlock()

	if changed != nil {
		changed(snapshot)
	}
	return nil
}

// RemoveMember unlinks one target from its zone. The zone itself survives
// membership edits until explicitly dissolved, even below two members
// (propagation then simply no-ops).
func (r *Registry) RemoveMember(zoneID string, target model.TargetID) error {
	r.mu.Lock()
	zone, exists := r.zones[zoneID]
	if !exists {
		r.mu.Unlock()
		return ErrZoneNotFound
	}
	if !zone.Contains(target) {
		r.mu.Unlock()
		return ErrNotMember
	}

	zone.Members = zone.Others(target)
	delete(r.membership, target)
	changed := r.onZoneChanged
	snapshot := zone.clone()
	r.mu.Unlock()

	if changed != nil {
		changed(snapshot)
	}
	return nil
}

// Dissolve removes a zone outright, unlinking all members.
func (r *Registry) Dissolve(zoneID string) error {
	r.mu.Lock()
	zone, exists := r.zones[zoneID]
	if !exists {
		r.mu.Unlock()
		return ErrZoneNotFound
	}

	for _, m := range zone.Members {
		delete(r.membership, m)
	}
	delete(r.zones, zoneID)
	dissolved := r.onZoneDissolved
	r.mu.Unlock()

	if dissolved != nil {
		dissolved(zoneID)
	}
	return nil
}

// Rename changes a zone's display name.
func (r *Registry) Rename(zoneID, name string) error {
	r.mu.Lock()
	zone, exists := r.zones[zoneID]
	if !exists {
		r.mu.Unlock()
		return ErrZoneNotFound
	}
	zone.Name = name
	changed := r.onZoneChanged
	snapshot := zone.clone()
	r.mu.Unlock()

	if changed != nil {
		changed(snapshot)
	}
	return nil
}

// ZoneOf returns the zone containing target, or nil if it is unlinked.
func (r *Registry) ZoneOf(target model.TargetID) *Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zoneID, ok := r.membership[target]
	if !ok {
		return nil
	}
	return r.zones[zoneID].clone()
}

// Get returns a zone by ID.
func (r *Registry) Get(zoneID string) (*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zone, exists := r.zones[zoneID]
	if !exists {
		return nil, ErrZoneNotFound
	}
	return zone.clone(), nil
}

// All returns all zones.
func (r *Registry) All() []*Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zones := make([]*Zone, 0, len(r.zones))
	for _, z := range r.zones {
		zones = append(zones, z.clone())
	}
	return zones
}

// Count returns the number of zones.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// ApplyRemote replaces the whole registry with a server-pushed zone list,
// e.g. from a full topology resync. Incremental pushed changes go through
// Mirror instead.
func (r *Registry) ApplyRemote(zones []Zone) {
	r.mu.Lock()
	r.zones = make(map[string]*Zone, len(zones))
	r.membership = make(map[model.TargetID]string)
	for i := range zones {
		z := zones[i].clone()
		r.zones[z.ID] = z
		for _, m := range z.Members {
			r.membership[m] = z.ID
		}
	}
	r.mu.Unlock()
}

// OnZoneChanged sets a callback for zone creation and membership edits.
func (r *Registry) OnZoneChanged(fn func(zone *Zone)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onZoneChanged = fn
}

// OnZoneDissolved sets a callback for zone dissolution.
func (r *Registry) OnZoneDissolved(fn func(zoneID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onZoneDissolved = fn
}
