package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roomtone/roomtone-go/pkg/coalesce"
	"github.com/roomtone/roomtone-go/pkg/events"
	"github.com/roomtone/roomtone-go/pkg/model"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// applianceServer fakes the appliance HTTP API and records every request.
type applianceServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	failPaths map[string]bool
	stations  model.StationList
}

func newApplianceServer(t *testing.T) *applianceServer {
	t.Helper()
	a := &applianceServer{failPaths: make(map[string]bool)}
	a.srv = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.srv.Close)
	return a
}

func (a *applianceServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{r.Method, r.URL.Path, string(body)})
	fail := a.failPaths[r.URL.Path]
	stations := a.stations
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		fmt.Fprint(w, `{"success":false,"message":"device offline"}`)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/zones":
		fmt.Fprint(w, `{"success":true,"zone_id":"zone-1"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/stations":
		_ = json.NewEncoder(w).Encode(stations)
	case r.Method == http.MethodGet:
		fmt.Fprint(w, `{}`)
	default:
		fmt.Fprint(w, `{"success":true}`)
	}
}

func (a *applianceServer) setFail(path string, fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failPaths[path] = fail
}

func (a *applianceServer) countRequests(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, req := range a.requests {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

func (a *applianceServer) bodiesFor(method, path string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var bodies []string
	for _, req := range a.requests {
		if req.Method == method && req.Path == path {
			bodies = append(bodies, req.Body)
		}
	}
	return bodies
}

func startService(t *testing.T, cfg Config) *ControllerService {
	t.Helper()
	svc, err := NewControllerService(cfg)
	if err != nil {
		t.Fatalf("NewControllerService() error = %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServiceLifecycle(t *testing.T) {
	appliance := newApplianceServer(t)
	svc, err := NewControllerService(DefaultConfig(appliance.srv.URL, ""))
	if err != nil {
		t.Fatal(err)
	}

	if svc.State() != StateIdle {
		t.Errorf("State = %v, want IDLE", svc.State())
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if svc.State() != StateRunning {
		t.Errorf("State = %v, want RUNNING", svc.State())
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := svc.Stop(); err != ErrNotStarted {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	if _, err := NewControllerService(Config{}); err != ErrInvalidConfig {
		t.Errorf("NewControllerService(empty) error = %v, want ErrInvalidConfig", err)
	}
}

// Rapid gain edits on one band coalesce: the intermediate value is never
// sent and the final value is flushed exactly once, by the finalize.
func TestCoalescedGainEdits(t *testing.T) {
	appliance := newApplianceServer(t)
	cfg := DefaultConfig(appliance.srv.URL, "")
	cfg.Write = coalesce.Config{ThrottleDelay: 40 * time.Millisecond, FinalDelay: 300 * time.Millisecond}
	svc := startService(t, cfg)

	band := model.FilterBand{ID: "eq_band_00", Frequency: 1000, Q: 1.4, Type: model.FilterPeaking, Enabled: true}
	for _, gain := range []float64{0, 3, 7} {
		band.Gain = gain
		svc.SetFilterBand(model.LocalTargetID, band)
		time.Sleep(5 * time.Millisecond)
	}
	svc.EndFilterEdit(model.LocalTargetID, "eq_band_00")

	// The edit is visible immediately, ahead of server confirmation.
	if v, ok := svc.Value(model.ParamKey{Target: model.LocalTargetID, Name: "eq_band_00"}); !ok || v.(model.FilterBand).Gain != 7 {
		t.Errorf("visible band = %v, want optimistic gain 7", v)
	}

	path := "/api/v1/targets/local/filters/eq_band_00"
	bodies := appliance.bodiesFor(http.MethodPut, path)
	if len(bodies) == 0 {
		t.Fatal("no filter writes observed")
	}
	finals := 0
	for _, body := range bodies {
		if strings.Contains(body, `"gain":3`) {
			t.Errorf("intermediate gain 3 reached the network: %s", body)
		}
		if strings.Contains(body, `"gain":7`) {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("writes carrying the final gain = %d, want exactly 1", finals)
	}
	if !strings.Contains(bodies[len(bodies)-1], `"gain":7`) {
		t.Errorf("last write = %s, want the final gain", bodies[len(bodies)-1])
	}
}

// A mute on a 3-member zone fans out to the two other members; one member
// failing leaves one fault visible until the TTL elapses.
func TestZoneMuteFanOut(t *testing.T) {
	appliance := newApplianceServer(t)
	cfg := DefaultConfig(appliance.srv.URL, "")
	cfg.FaultTTL = 150 * time.Millisecond
	svc := startService(t, cfg)

	svc.RegisterTarget(model.Target{ID: "a.local", Name: "A", Reachable: true})
	svc.RegisterTarget(model.Target{ID: "b.local", Name: "B", Reachable: true})

	members := []model.TargetID{model.LocalTargetID, "a.local", "b.local"}
	z, err := svc.CreateZone(context.Background(), "Downstairs", members, model.LocalTargetID)
	if err != nil {
		t.Fatalf("CreateZone() error = %v", err)
	}
	if z.ID != "zone-1" {
		t.Errorf("zone ID = %q, want the server-assigned zone-1", z.ID)
	}

	appliance.setFail("/api/v1/targets/b.local/mute", true)
	svc.SetMute(model.LocalTargetID, true)

	for _, path := range []string{
		"/api/v1/targets/local/mute",
		"/api/v1/targets/a.local/mute",
		"/api/v1/targets/b.local/mute",
	} {
		if n := appliance.countRequests(http.MethodPut, path); n != 1 {
			t.Errorf("writes to %s = %d, want 1", path, n)
		}
	}

	errs := svc.Faults()
	if len(errs) != 1 {
		t.Fatalf("faults = %d, want 1", len(errs))
	}
	if errs[0].Target != "b.local" || errs[0].Operation != model.OpSetMute {
		t.Errorf("fault = %+v, want set_mute on b.local", errs[0])
	}

	waitUntil(t, "fault TTL expiry", func() bool { return len(svc.Faults()) == 0 })
}

// A pushed zone change that moves a device between zones is authoritative:
// the device leaves its old zone locally, membership conflict or not.
func TestPushedZoneMoveMirrored(t *testing.T) {
	appliance := newApplianceServer(t)
	cfg := DefaultConfig(appliance.srv.URL, "")
	svc := startService(t, cfg)

	svc.handleZoneChanged(zoneEvent(t, "zone-1", []string{"local", "a.local"}))
	if z := svc.ZoneOf("a.local"); z == nil || z.ID != "zone-1" {
		t.Fatal("a.local should start out in zone-1")
	}

	// The appliance moved a.local into a new zone with b.local.
	svc.handleZoneChanged(zoneEvent(t, "zone-2", []string{"a.local", "b.local"}))

	z := svc.ZoneOf("a.local")
	if z == nil || z.ID != "zone-2" {
		t.Fatalf("a.local zone = %+v, want the pushed zone-2", z)
	}
	old := svc.ZoneOf(model.LocalTargetID)
	if old == nil || old.ID != "zone-1" {
		t.Fatal("local should remain in zone-1")
	}
	for _, m := range old.Members {
		if m == "a.local" {
			t.Error("a.local should have left zone-1")
		}
	}
}

func zoneEvent(t *testing.T, zoneID string, members []string) events.Event {
	t.Helper()
	data, err := json.Marshal(events.ZoneChangePayload{ZoneID: zoneID, Members: members})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return events.Event{Type: events.TypeZoneChanged, Data: data}
}

// A failed source write reverts the optimistic value to the last confirmed
// one.
func TestFailedWriteRevertsOptimistic(t *testing.T) {
	appliance := newApplianceServer(t)
	cfg := DefaultConfig(appliance.srv.URL, "")
	svc := startService(t, cfg)

	key := model.ParamKey{Target: model.LocalTargetID, Name: model.ParamVolume}
	svc.store.Confirm(key, model.Volume{Db: -30})

	appliance.setFail("/api/v1/targets/local/volume", true)
	svc.SetVolume(model.LocalTargetID, -20)
	svc.EndVolumeEdit(model.LocalTargetID)

	waitUntil(t, "optimistic revert", func() bool {
		v, _ := svc.Value(key)
		vol, ok := v.(model.Volume)
		return ok && vol.Db == -30
	})
	if len(svc.Faults()) == 0 {
		t.Error("failed write should be recorded as a fault")
	}
}

// Cold catalog query populates both tiers; a second query inside the
// staleness window is served from memory with no network call.
func TestCatalogColdThenWarm(t *testing.T) {
	appliance := newApplianceServer(t)
	stations := model.StationList{Total: 50}
	for i := 0; i < 50; i++ {
		stations.Items = append(stations.Items, model.Station{
			ID:   fmt.Sprintf("s%02d", i),
			Name: fmt.Sprintf("Station %02d", i),
		})
	}
	appliance.mu.Lock()
	appliance.stations = stations
	appliance.mu.Unlock()

	cfg := DefaultConfig(appliance.srv.URL, "")
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "catalog.json")
	svc := startService(t, cfg)

	res := svc.Stations(context.Background(), model.StationQuery{})
	if res.Failed || len(res.Items) != 50 {
		t.Fatalf("cold query = %+v, want 50 stations", res)
	}
	if n := appliance.countRequests(http.MethodGet, "/api/v1/stations"); n != 1 {
		t.Fatalf("network calls = %d, want 1", n)
	}
	if _, err := os.Stat(cfg.SnapshotPath); err != nil {
		t.Errorf("persistent tier not populated: %v", err)
	}

	res = svc.Stations(context.Background(), model.StationQuery{})
	if len(res.Items) != 50 || res.Stale {
		t.Errorf("warm query = %+v, want a fresh memory hit", res)
	}
	if n := appliance.countRequests(http.MethodGet, "/api/v1/stations"); n != 1 {
		t.Errorf("network calls = %d, want still 1", n)
	}
}

// A pushed update for a key with a live edit session is deferred; once the
// session ends, the next update applies.
func TestRemoteUpdateDefersToLiveEdit(t *testing.T) {
	appliance := newApplianceServer(t)
	cfg := DefaultConfig(appliance.srv.URL, "")
	cfg.Write = coalesce.Config{ThrottleDelay: 20 * time.Millisecond, FinalDelay: 80 * time.Millisecond}
	svc := startService(t, cfg)

	key := model.ParamKey{Target: model.LocalTargetID, Name: model.ParamVolume}
	svc.SetVolume(model.LocalTargetID, -30)

	if svc.reconciler.ApplyRemoteUpdate(key, model.Volume{Db: -10}) {
		t.Error("remote update should be deferred while the edit is live")
	}
	if v, _ := svc.Value(key); v.(model.Volume).Db != -30 {
		t.Errorf("value = %v, want the local edit to survive", v)
	}

	// An unrelated key reconciles regardless.
	other := model.ParamKey{Target: "a.local", Name: model.ParamVolume}
	if !svc.reconciler.ApplyRemoteUpdate(other, model.Volume{Db: -5}) {
		t.Error("unrelated keys must not be blocked by the live edit")
	}

	waitUntil(t, "edit session release", func() bool { return !svc.scheduler.HasPending(key) })
	if !svc.reconciler.ApplyRemoteUpdate(key, model.Volume{Db: -10}) {
		t.Error("remote update should apply once the session ended")
	}
	if v, _ := svc.Value(key); v.(model.Volume).Db != -10 {
		t.Errorf("value = %v, want the remote -10", v)
	}
}
