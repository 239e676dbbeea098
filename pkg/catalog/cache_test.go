package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/persistence"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	queries []model.StationQuery
	list    model.StationList
	err     error
	block   chan struct{}
}

func (f *fakeFetcher) SearchStations(ctx context.Context, query model.StationQuery) (model.StationList, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, query)
	list, err, block := f.list, f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return model.StationList{}, ctx.Err()
		}
	}
	return list, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) setList(list model.StationList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
}

func stationList(ids ...string) model.StationList {
	list := model.StationList{Total: len(ids)}
	for _, id := range ids {
		list.Items = append(list.Items, model.Station{ID: id, Name: "Station " + id})
	}
	return list
}

func waitFor(t *testing.T, what string, cond func() bool) {
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

func TestCacheColdMissPopulatesBothTiers(t *testing.T) {
	dir := t.TempDir()
	store := persistence.NewCatalogStore(filepath.Join(dir, "catalog.json"))
	fetcher := &fakeFetcher{list: stationList("s1", "s2")}
	c := NewCache(DefaultConfig(), fetcher, store, nil)

	res := c.Get(context.Background(), model.StationQuery{})
	if res.Failed || res.Stale {
		t.Fatalf("cold fetch result = %+v, want a fresh success", res)
	}
	if len(res.Items) != 2 || res.Total != 2 {
		t.Errorf("result = %+v, want 2 stations", res)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("network calls = %d, want 1", fetcher.callCount())
	}

	snap, err := store.Load()
	if err != nil || snap == nil {
		t.Fatalf("persistent tier not populated: snap=%v err=%v", snap, err)
	}
	if len(snap.Items) != 2 {
		t.Errorf("persisted items = %d, want 2", len(snap.Items))
	}

	// A second read within the staleness window is memory-only.
	res = c.Get(context.Background(), model.StationQuery{})
	if res.Stale || len(res.Items) != 2 {
		t.Errorf("second read = %+v, want fresh memory hit", res)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("network calls = %d, want still 1", fetcher.callCount())
	}
}

func TestCacheAgingServesAndRefreshes(t *testing.T) {
	fetcher := &fakeFetcher{list: stationList("s1")}
	c := NewCache(Config{StaleAfter: 20 * time.Millisecond, TTL: 10 * time.Second}, fetcher, nil, nil)

	c.Get(context.Background(), model.StationQuery{})
	time.Sleep(40 * time.Millisecond)

	fetcher.setList(stationList("s1", "s2"))
	res := c.Get(context.Background(), model.StationQuery{})
	if !res.Stale {
		t.Error("aging entry should be served as stale")
	}
	if len(res.Items) != 1 {
		t.Errorf("aging read = %d items, want the old entry's 1", len(res.Items))
	}

	waitFor(t, "background refresh", func() bool { return fetcher.callCount() == 2 })
	waitFor(t, "memory replacement", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.memory != nil && len(c.memory.items) == 2
	})
}

func TestCacheSnapshotHitRefreshes(t *testing.T) {
	dir := t.TempDir()
	store := persistence.NewCatalogStore(filepath.Join(dir, "catalog.json"))
	err := store.Save(&persistence.CatalogSnapshot{
		CapturedAt: time.Now().Add(-time.Hour),
		Items:      []model.Station{{ID: "old", Name: "Old Station"}},
		Total:      1,
	})
	if err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{list: stationList("new1", "new2")}
	c := NewCache(DefaultConfig(), fetcher, store, nil)

	res := c.Get(context.Background(), model.StationQuery{})
	if !res.Stale {
		t.Error("snapshot hit should be served as stale")
	}
	if len(res.Items) != 1 || res.Items[0].ID != "old" {
		t.Errorf("result = %+v, want the persisted station", res.Items)
	}

	// The snapshot may be from a previous session: refresh is unconditional.
	waitFor(t, "refresh after snapshot hit", func() bool { return fetcher.callCount() == 1 })
	waitFor(t, "memory replacement", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.memory != nil && len(c.memory.items) == 2
	})
}

func TestCacheExpiredEntryBlocksOnNetwork(t *testing.T) {
	fetcher := &fakeFetcher{list: stationList("s1")}
	c := NewCache(Config{StaleAfter: 5 * time.Millisecond, TTL: 10 * time.Millisecond}, fetcher, nil, nil)

	c.Get(context.Background(), model.StationQuery{})
	time.Sleep(30 * time.Millisecond)

	fetcher.setList(stationList("s1", "s2", "s3"))
	res := c.Get(context.Background(), model.StationQuery{})
	if res.Stale {
		t.Error("a blocking refetch should return a fresh result")
	}
	if len(res.Items) != 3 {
		t.Errorf("result = %d items, want the refetched 3", len(res.Items))
	}
	if fetcher.callCount() != 2 {
		t.Errorf("network calls = %d, want 2", fetcher.callCount())
	}
}

func TestCacheTotalMissFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	c := NewCache(DefaultConfig(), fetcher, nil, nil)

	res := c.Get(context.Background(), model.StationQuery{})
	if !res.Failed {
		t.Error("all tiers missed and the fetch failed, want Failed")
	}
	if len(res.Items) != 0 {
		t.Errorf("result = %+v, want empty", res.Items)
	}
}

func TestCacheExpiredEntryIsFailureFallback(t *testing.T) {
	fetcher := &fakeFetcher{list: stationList("s1")}
	c := NewCache(Config{StaleAfter: 5 * time.Millisecond, TTL: 10 * time.Millisecond}, fetcher, nil, nil)

	c.Get(context.Background(), model.StationQuery{})
	time.Sleep(30 * time.Millisecond)

	fetcher.mu.Lock()
	fetcher.err = errors.New("connection refused")
	fetcher.mu.Unlock()

	res := c.Get(context.Background(), model.StationQuery{})
	if res.Failed {
		t.Error("an expired entry should still be served when the refetch fails")
	}
	if !res.Stale || len(res.Items) != 1 {
		t.Errorf("result = %+v, want the expired entry marked stale", res)
	}
}

func TestCacheFilteredQueryBypasses(t *testing.T) {
	fetcher := &fakeFetcher{list: stationList("s1", "s2")}
	c := NewCache(DefaultConfig(), fetcher, nil, nil)

	c.Get(context.Background(), model.StationQuery{})
	if fetcher.callCount() != 1 {
		t.Fatalf("network calls = %d, want 1", fetcher.callCount())
	}

	fetcher.setList(stationList("jazz1"))
	res := c.Get(context.Background(), model.StationQuery{Genre: "jazz"})
	if fetcher.callCount() != 2 {
		t.Errorf("a filtered query must hit the network even with fresh memory")
	}
	if len(res.Items) != 1 || res.Items[0].ID != "jazz1" {
		t.Errorf("filtered result = %+v, want the fetched list", res.Items)
	}

	// The filtered result must not replace the cached default entry.
	fetcher.mu.Lock()
	fetcher.queries = nil
	fetcher.mu.Unlock()
	res = c.Get(context.Background(), model.StationQuery{})
	if len(res.Items) != 2 {
		t.Errorf("default read after filtered query = %d items, want the cached 2", len(res.Items))
	}
	if fetcher.callCount() != 2 {
		t.Errorf("default read should still be a memory hit")
	}
}

func TestCacheRefreshReportsOnlyVisibleChanges(t *testing.T) {
	t.Run("UnchangedContentIsSilent", func(t *testing.T) {
		fetcher := &fakeFetcher{list: stationList("s1", "s2")}
		c := NewCache(Config{StaleAfter: 10 * time.Millisecond, TTL: 10 * time.Second}, fetcher, nil, nil)

		var mu sync.Mutex
		notified := 0
		c.OnRefresh(func(Result) {
			mu.Lock()
			notified++
			mu.Unlock()
		})

		c.Get(context.Background(), model.StationQuery{})
		time.Sleep(20 * time.Millisecond)
		c.Get(context.Background(), model.StationQuery{})

		waitFor(t, "refresh", func() bool { return fetcher.callCount() == 2 })
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		if notified != 0 {
			t.Errorf("notifications = %d, want 0 for identical content", notified)
		}
	})

	t.Run("ChangedContentNotifies", func(t *testing.T) {
		fetcher := &fakeFetcher{list: stationList("s1", "s2")}
		c := NewCache(Config{StaleAfter: 10 * time.Millisecond, TTL: 10 * time.Second}, fetcher, nil, nil)

		var mu sync.Mutex
		var got []Result
		c.OnRefresh(func(r Result) {
			mu.Lock()
			got = append(got, r)
			mu.Unlock()
		})

		c.Get(context.Background(), model.StationQuery{})
		time.Sleep(20 * time.Millisecond)
		fetcher.setList(stationList("s9", "s2"))
		c.Get(context.Background(), model.StationQuery{})

		waitFor(t, "refresh notification", func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 1
		})
		mu.Lock()
		defer mu.Unlock()
		if got[0].Items[0].ID != "s9" {
			t.Errorf("notified result = %+v, want the refreshed list", got[0].Items)
		}
	})
}

func TestCacheStopAbortsOutstandingLoad(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{list: stationList("s1"), block: block}
	c := NewCache(DefaultConfig(), fetcher, nil, nil)

	done := make(chan Result, 1)
	go func() {
		done <- c.Get(context.Background(), model.StationQuery{})
	}()

	waitFor(t, "fetch to start", func() bool { return fetcher.callCount() == 1 })
	c.Stop()

	select {
	case res := <-done:
		if !res.Aborted || res.Failed {
			t.Errorf("result = %+v, want a silent abort", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("aborted load did not resolve")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memory != nil {
		t.Error("an aborted load must not populate the cache")
	}
}
