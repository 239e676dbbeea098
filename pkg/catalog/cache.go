package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/persistence"
)

const (
	// DefaultStaleAfter is how old a memory entry may get before a serve
	// triggers a background refresh.
	DefaultStaleAfter = 5 * time.Minute

	// DefaultTTL is how old a memory entry may get before it can no longer
	// be served and the read blocks on the network.
	DefaultTTL = 10 * time.Minute
)

// Fetcher is the network tier of the cache. *api.Client satisfies it.
type Fetcher interface {
	SearchStations(ctx context.Context, query model.StationQuery) (model.StationList, error)
}

// Config holds the cache timing parameters.
type Config struct {
	StaleAfter time.Duration
	TTL        time.Duration
}

// DefaultConfig returns the default cache timing parameters.
func DefaultConfig() Config {
	return Config{
		StaleAfter: DefaultStaleAfter,
		TTL:        DefaultTTL,
	}
}

// Result is the outcome of a catalog read.
type Result struct {
	Items []model.Station
	Total int

	// Stale is set when the result came from an aging or persisted entry
	// and a refresh is in flight.
	Stale bool

	// Failed is set when every tier missed and the network fetch failed.
	Failed bool

	// Aborted is set when the read was superseded by a newer one and was
	// cancelled. An aborted read is a no-op, not a failure.
	Aborted bool
}

type entry struct {
	items      []model.Station
	total      int
	capturedAt time.Time
}

func (e *entry) result(stale bool) Result {
	return Result{Items: e.items, Total: e.total, Stale: stale}
}

// signature is a cheap content identity for flicker avoidance: a refresh
// that produces the same signature is not reported as a visible change.
func (e *entry) signature() string {
	if e == nil || len(e.items) == 0 {
		return ""
	}
	return e.items[0].ID + ":" + strconv.Itoa(len(e.items))
}

// Cache is the tiered station catalog cache.
type Cache struct {
	mu      sync.Mutex
	config  Config
	fetcher Fetcher
	store   *persistence.CatalogStore
	logger  log.Logger

	memory *entry

	// Default-query load slot. Bumping gen and cancelling the previous
	// context supersedes any outstanding load or refresh; a superseded
	// load finds its generation stale on completion and discards itself.
	gen        uint64
	cancel     context.CancelFunc
	refreshing bool

	// Filtered queries have their own supersede slot so a search does not
	// abort a default-query refresh.
	searchCancel context.CancelFunc

	onRefresh func(Result)
}

// NewCache creates a catalog cache. The store may be nil to disable the
// persistent tier, and the logger may be nil.
func NewCache(config Config, fetcher Fetcher, store *persistence.CatalogStore, logger log.Logger) *Cache {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &Cache{
		config:  config,
		fetcher: fetcher,
		store:   store,
		logger:  log.OrNoop(logger),
	}
}

// OnRefresh sets the callback invoked when a background refresh changed the
// visible content of the default query. It is not called for refreshes that
// produced identical content.
func (c *Cache) OnRefresh(cb func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = cb
}

// Get resolves a catalog query through the tiers. Filtered queries always go
// to the network; the default query is served from the freshest tier that
// still holds it.
func (c *Cache) Get(ctx context.Context, query model.StationQuery) Result {
	if !query.IsDefault() {
		return c.fetchFiltered(ctx, query)
	}

	c.mu.Lock()
	now := time.Now()
	if e := c.memory; e != nil {
		age := now.Sub(e.capturedAt)
		if age < c.config.StaleAfter {
			res := e.result(false)
			c.mu.Unlock()
			c.logCache("memory hit")
			return res
		}
		if age < c.config.TTL {
			res := e.result(true)
			c.startRefreshLocked()
			c.mu.Unlock()
			c.logCache("aging hit, refreshing")
			return res
		}
	}
	// Past TTL the entry is only kept as a fallback for a failed fetch.
	expired := c.memory
	c.mu.Unlock()

	if expired == nil && c.store != nil {
		if snap, err := c.store.Load(); err == nil && snap != nil && len(snap.Items) > 0 {
			c.mu.Lock()
			if c.memory == nil {
				c.memory = &entry{items: snap.Items, total: snap.Total, capturedAt: snap.CapturedAt}
			}
			res := c.memory.result(true)
			// The snapshot may predate this session, so always refresh.
			c.startRefreshLocked()
			c.mu.Unlock()
			c.logCache("snapshot hit, refreshing")
			return res
		}
	}

	return c.fetchBlocking(ctx, expired)
}

// Invalidate drops the memory tier so the next default-query read goes
// through the persistent tier or the network.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = nil
}

// Stop cancels any outstanding loads.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.searchCancel != nil {
		c.searchCancel()
		c.searchCancel = nil
	}
	c.gen++
}

func (c *Cache) logCache(message string) {
	e := log.NewEvent(log.CategoryCache)
	e.Operation = "catalog"
	e.Message = message
	c.logger.Log(e)
}

// beginLoadLocked supersedes the previous default-query load and opens a new
// load slot under the given parent context.
func (c *Cache) beginLoadLocked(parent context.Context) (context.Context, uint64) {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	return ctx, c.gen
}

// commit installs a fetched list as the new memory entry and persists it.
// It returns false when the load was superseded, in which case nothing is
// mutated.
func (c *Cache) commit(gen uint64, list model.StationList) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	e := &entry{items: list.Items, total: list.Total, capturedAt: time.Now()}
	c.memory = e
	c.mu.Unlock()

	if c.store != nil {
		err := c.store.Save(&persistence.CatalogSnapshot{
			CapturedAt: e.capturedAt,
			Items:      e.items,
			Total:      e.total,
		})
		if err != nil {
			c.logger.Log(log.ErrorEvent("", "catalog_persist", err))
		}
	}
	return true
}

func (c *Cache) fetchBlocking(ctx context.Context, fallback *entry) Result {
	c.mu.Lock()
	loadCtx, gen := c.beginLoadLocked(ctx)
	c.mu.Unlock()

	list, err := c.fetcher.SearchStations(loadCtx, model.StationQuery{})
	if err != nil {
		if loadCtx.Err() != nil {
			return Result{Aborted: true}
		}
		c.logger.Log(log.ErrorEvent("", "catalog_fetch", err))
		if fallback != nil {
			// Better an expired catalog than none.
			return fallback.result(true)
		}
		return Result{Failed: true}
	}
	if !c.commit(gen, list) {
		return Result{Aborted: true}
	}
	return Result{Items: list.Items, Total: list.Total}
}

// startRefreshLocked launches a background refresh of the default query
// unless one is already in flight. Callers must hold c.mu.
func (c *Cache) startRefreshLocked() {
	if c.refreshing {
		return
	}
	c.refreshing = true
	ctx, gen := c.beginLoadLocked(context.Background())
	prevSig := c.memory.signature()

	go func() {
		defer func() {
			c.mu.Lock()
			c.refreshing = false
			c.mu.Unlock()
		}()

		list, err := c.fetcher.SearchStations(ctx, model.StationQuery{})
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Log(log.ErrorEvent("", "catalog_refresh", err))
			}
			return
		}
		if !c.commit(gen, list) {
			return
		}

		c.mu.Lock()
		changed := c.memory.signature() != prevSig
		cb := c.onRefresh
		res := c.memory.result(false)
		c.mu.Unlock()

		if changed && cb != nil {
			cb(res)
		}
	}()
}

func (c *Cache) fetchFiltered(ctx context.Context, query model.StationQuery) Result {
	c.mu.Lock()
	if c.searchCancel != nil {
		c.searchCancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	c.searchCancel = cancel
	c.mu.Unlock()

	list, err := c.fetcher.SearchStations(searchCtx, query)
	if err != nil {
		if searchCtx.Err() != nil {
			return Result{Aborted: true}
		}
		c.logger.Log(log.ErrorEvent("", "catalog_search", err))
		return Result{Failed: true}
	}
	return Result{Items: list.Items, Total: list.Total}
}
