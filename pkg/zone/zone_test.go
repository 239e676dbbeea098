package zone

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/roomtone/roomtone-go/pkg/model"
)

func TestRegistryCreate(t *testing.T) {
	t.Run("RequiresTwoMembers", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Create("Solo", []model.TargetID{"local"}, "local")
		if !errors.Is(err, ErrTooFewMembers) {
			t.Errorf("Create() error = %v, want ErrTooFewMembers", err)
		}
	})

	t.Run("LinksMembers", func(t *testing.T) {
		r := NewRegistry()
		z, err := r.Create("Downstairs", []model.TargetID{"local", "kitchen.local"}, "local")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if z.ID == "" {
			t.Error("zone ID should be assigned")
		}
		if got := r.ZoneOf("kitchen.local"); got == nil || got.ID != z.ID {
			t.Error("kitchen.local should resolve to the new zone")
		}
	})

	t.Run("OneZonePerTarget", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Create("A", []model.TargetID{"local", "kitchen.local"}, "local"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		_, err := r.Create("B", []model.TargetID{"kitchen.local", "patio.local"}, "patio.local")
		if !errors.Is(err, ErrAlreadyLinked) {
			t.Errorf("Create() error = %v, want ErrAlreadyLinked", err)
		}
	})
}

func TestRegistryMembershipEdits(t *testing.T) {
	r := NewRegistry()
	z, err := r.Create("Downstairs", []model.TargetID{"local", "kitchen.local", "patio.local"}, "local")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("RemoveMember", func(t *testing.T) {
		if err := r.RemoveMember(z.ID, "patio.local"); err != nil {
			t.Fatalf("RemoveMember() error = %v", err)
		}
		if r.ZoneOf("patio.local") != nil {
			t.Error("patio.local should be unlinked")
		}
		got, err := r.Get(z.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(got.Members) != 2 {
			t.Errorf("members = %d, want 2", len(got.Members))
		}
	})

	t.Run("SurvivesBelowTwoMembers", func(t *testing.T) {
		if err := r.RemoveMember(z.ID, "kitchen.local"); err != nil {
			t.Fatalf("RemoveMember() error = %v", err)
		}
		got, err := r.Get(z.ID)
		if err != nil {
			t.Fatalf("zone should survive membership edits, got %v", err)
		}
		if len(got.Members) != 1 {
			t.Errorf("members = %d, want 1", len(got.Members))
		}
	})

	t.Run("ReplaceMembers", func(t *testing.T) {
		if err := r.ReplaceMembers(z.ID, []model.TargetID{"local", "office.local"}); err != nil {
			t.Fatalf("ReplaceMembers() error = %v", err)
		}
		if got := r.ZoneOf("office.local"); got == nil || got.ID != z.ID {
			t.Error("office.local should resolve to the zone")
		}
		if r.ZoneOf("kitchen.local") != nil {
			t.Error("kitchen.local should no longer be linked")
		}
	})

	t.Run("Rename", func(t *testing.T) {
		if err := r.Rename(z.ID, "Ground Floor"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		got, _ := r.Get(z.ID)
		if got.Name != "Ground Floor" {
			t.Errorf("name = %q, want Ground Floor", got.Name)
		}
	})

	t.Run("Dissolve", func(t *testing.T) {
		if err := r.Dissolve(z.ID); err != nil {
			t.Fatalf("Dissolve() error = %v", err)
		}
		if _, err := r.Get(z.ID); !errors.Is(err, ErrZoneNotFound) {
			t.Errorf("Get() error = %v, want ErrZoneNotFound", err)
		}
		if r.ZoneOf("local") != nil {
			t.Error("local should be unlinked after dissolve")
		}
	})
}

func TestRegistryMirror(t *testing.T) {
	t.Run("CreatesUnknownZone", func(t *testing.T) {
		r := NewRegistry()
		z := r.Mirror(Zone{ID: "zone-1", Name: "Downstairs", Members: []model.TargetID{"local", "kitchen.local"}, Source: "local"})
		if z.ID != "zone-1" {
			t.Errorf("zone ID = %q, want the pushed zone-1", z.ID)
		}
		if got := r.ZoneOf("kitchen.local"); got == nil || got.ID != "zone-1" {
			t.Error("kitchen.local should resolve to zone-1")
		}
	})

	t.Run("ReleasesMovedMembers", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Adopt(Zone{ID: "zone-1", Members: []model.TargetID{"local", "kitchen.local"}, Source: "local"}); err != nil {
			t.Fatalf("Adopt() error = %v", err)
		}

		// The server moved kitchen.local into a new zone.
		r.Mirror(Zone{ID: "zone-2", Members: []model.TargetID{"kitchen.local", "patio.local"}, Source: "patio.local"})

		if got := r.ZoneOf("kitchen.local"); got == nil || got.ID != "zone-2" {
			t.Fatal("kitchen.local should follow the move to zone-2")
		}
		old, err := r.Get("zone-1")
		if err != nil {
			t.Fatalf("Get(zone-1) error = %v", err)
		}
		if len(old.Members) != 1 || old.Members[0] != "local" {
			t.Errorf("zone-1 members = %v, want only local", old.Members)
		}
	})

	t.Run("UpdatesInPlace", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Adopt(Zone{ID: "zone-1", Name: "Old", Members: []model.TargetID{"local", "kitchen.local"}, Source: "local"}); err != nil {
			t.Fatalf("Adopt() error = %v", err)
		}

		r.Mirror(Zone{ID: "zone-1", Name: "New", Members: []model.TargetID{"local", "office.local"}})

		got, _ := r.Get("zone-1")
		if got.Name != "New" {
			t.Errorf("name = %q, want New", got.Name)
		}
		if r.ZoneOf("kitchen.local") != nil {
			t.Error("kitchen.local should be unlinked after the update")
		}
		if got := r.ZoneOf("office.local"); got == nil || got.ID != "zone-1" {
			t.Error("office.local should resolve to zone-1")
		}
	})

	t.Run("NotifiesDrainedZones", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Adopt(Zone{ID: "zone-1", Members: []model.TargetID{"local", "kitchen.local"}, Source: "local"}); err != nil {
			t.Fatalf("Adopt() error = %v", err)
		}

		var mu sync.Mutex
		seen := make(map[string]int)
		r.OnZoneChanged(func(z *Zone) {
			mu.Lock()
			seen[z.ID]++
			mu.Unlock()
		})

		r.Mirror(Zone{ID: "zone-2", Members: []model.TargetID{"kitchen.local", "patio.local"}})

		mu.Lock()
		defer mu.Unlock()
		if seen["zone-1"] != 1 || seen["zone-2"] != 1 {
			t.Errorf("callbacks = %v, want one for the drained zone and one for the mirrored zone", seen)
		}
	})
}

func TestRegistryApplyRemote(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("Old", []model.TargetID{"local", "kitchen.local"}, "local"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r.ApplyRemote([]Zone{{
		ID:      "zn-remote",
		Name:    "Upstairs",
		Members: []model.TargetID{"bedroom.local", "bath.local"},
	}})

	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
	if r.ZoneOf("kitchen.local") != nil {
		t.Error("old membership should be gone after remote replace")
	}
	if got := r.ZoneOf("bedroom.local"); got == nil || got.ID != "zn-remote" {
		t.Error("bedroom.local should resolve to the pushed zone")
	}
}

// fanOutRecorder records per-target replication writes.
type fanOutRecorder struct {
	mu      sync.Mutex
	targets []model.TargetID
	failOn  map[model.TargetID]bool
}

func (f *fanOutRecorder) write(_ context.Context, target model.TargetID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if f.failOn[target] {
		return errors.New("unreachable")
	}
	return nil
}

func TestPropagateFansOutToOthers(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("Downstairs", []model.TargetID{"local", "a.local", "b.local"}, "local"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := &fanOutRecorder{}
	p := NewPropagator(r, nil, nil)

	res := p.Propagate(context.Background(), "local", model.OpSetVolume, rec.write)
	if !res.Success {
		t.Errorf("Success = false, errors = %v", res.Errors)
	}
	if len(rec.targets) != 2 {
		t.Fatalf("replication writes = %d, want 2", len(rec.targets))
	}
	seen := map[model.TargetID]bool{}
	for _, tgt := range rec.targets {
		seen[tgt] = true
	}
	if !seen["a.local"] || !seen["b.local"] {
		t.Errorf("targets = %v, want a.local and b.local", rec.targets)
	}
	if seen["local"] {
		t.Error("source must not receive a replication write")
	}
}

func TestPropagateCollectsPerTargetFailures(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("Downstairs", []model.TargetID{"local", "a.local", "b.local"}, "local"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := &fanOutRecorder{failOn: map[model.TargetID]bool{"b.local": true}}
	p := NewPropagator(r, nil, nil)

	res := p.Propagate(context.Background(), "local", model.OpSetVolume, rec.write)
	if res.Success {
		t.Error("Success = true, want false with one failure")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	if res.Errors[0].Target != "b.local" {
		t.Errorf("failed target = %s, want b.local", res.Errors[0].Target)
	}
	if res.Errors[0].Operation != model.OpSetVolume {
		t.Errorf("operation = %s, want %s", res.Errors[0].Operation, model.OpSetVolume)
	}
	// a.local's write completed despite b.local failing.
	if len(rec.targets) != 2 {
		t.Errorf("replication writes = %d, want 2", len(rec.targets))
	}
}

func TestPropagateNoopCases(t *testing.T) {
	t.Run("UnlinkedTarget", func(t *testing.T) {
		rec := &fanOutRecorder{}
		p := NewPropagator(NewRegistry(), nil, nil)
		res := p.Propagate(context.Background(), "local", model.OpSetVolume, rec.write)
		if !res.Success || len(rec.targets) != 0 {
			t.Errorf("unlinked target should no-op, writes = %d", len(rec.targets))
		}
	})

	t.Run("MutePropagatesByDefault", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Create("Downstairs", []model.TargetID{"local", "a.local"}, "local"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		rec := &fanOutRecorder{}
		p := NewPropagator(r, nil, nil)
		res := p.Propagate(context.Background(), "local", model.OpSetMute, rec.write)
		if !res.Success || len(rec.targets) != 1 {
			t.Errorf("mute should propagate under the default policy, writes = %d", len(rec.targets))
		}
	})

	t.Run("IndependentMutePolicy", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Create("Downstairs", []model.TargetID{"local", "a.local"}, "local"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		rec := &fanOutRecorder{}
		p := NewPropagator(r, IndependentMutePolicy(), nil)
		res := p.Propagate(context.Background(), "local", model.OpSetMute, rec.write)
		if !res.Success || len(rec.targets) != 0 {
			t.Errorf("mute must not propagate under the independent-mute policy, writes = %d", len(rec.targets))
		}
	})

	t.Run("SingleMemberZone", func(t *testing.T) {
		r := NewRegistry()
		z, err := r.Create("Pair", []model.TargetID{"local", "a.local"}, "local")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := r.RemoveMember(z.ID, "a.local"); err != nil {
			t.Fatalf("RemoveMember() error = %v", err)
		}
		rec := &fanOutRecorder{}
		p := NewPropagator(r, nil, nil)
		res := p.Propagate(context.Background(), "local", model.OpSetVolume, rec.write)
		if !res.Success || len(rec.targets) != 0 {
			t.Errorf("single-member zone should no-op, writes = %d", len(rec.targets))
		}
	})
}
