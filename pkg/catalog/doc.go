// Package catalog serves the station catalog through a tiered read path:
// in-process memory, then the persistent snapshot on disk, then the network.
//
// Only the default (unfiltered) query is cached. Its state machine:
//
//   - Memory entry younger than the staleness threshold: served directly,
//     no network call.
//   - Memory entry between staleness and TTL: served directly, plus a
//     non-blocking background refresh.
//   - No memory entry but a persisted snapshot: served from disk, memory
//     repopulated, plus an unconditional background refresh (the snapshot
//     may be from a previous session).
//   - Nothing anywhere, or memory past TTL: the call blocks on the network.
//
// A background refresh replaces both tiers on completion and reports a
// visible change only when a cheap content signature differs from what was
// being shown, so an unchanged refresh never causes flicker.
//
// Filtered queries bypass the cache entirely and always reflect a fresh
// fetch. Starting any load supersedes the previous outstanding load of the
// same query family: the old request is cancelled, resolves as a silent
// no-op, and never mutates cache state after a newer load has won.
package catalog
