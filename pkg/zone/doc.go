// Package zone tracks linked device groups and replicates accepted writes
// across them.
//
// A zone is a named set of targets declared to hold identical values for a
// subset of parameters. A target belongs to at most one zone at a time; a
// zone keeps its identity across membership edits until explicitly
// dissolved.
//
// # Propagation
//
// After a write to one member succeeds, [Propagator.Propagate] replicates it
// to every other member concurrently, collecting per-target failures without
// letting one failure stop the rest. Propagation is fire-and-forget relative
// to the original write: the original success stands even if replication
// partially fails, and failures surface through the faults aggregator
// instead.
//
// Whether an operation propagates at all is an explicit per-operation policy
// flag, not a blanket rule. Mute deliberately does not propagate: each
// physical device's mute stays independent even inside a shared zone.
package zone
