// Package service wires the synchronization layers into one controller for
// a RoomTone appliance network.
//
// The ControllerService owns the write path and the read path:
//
//	edit -> optimistic state -> coalescing scheduler -> API write
//	     -> zone propagation -> fault aggregation
//
//	push channel -> reconciler -> observable state
//
// Local edits are visible immediately as optimistic values. The coalescing
// scheduler bounds the network write rate while guaranteeing the final value
// of an edit session is sent. An accepted write fans out to the rest of the
// target's zone per the propagation policy, and per-target failures surface
// through the fault aggregator for a rolling window.
//
// Pushed server state merges through the reconciler, which defers to live
// edit sessions per parameter key and suppresses the echo of the client's
// own writes. The station catalog is served through the tiered cache.
package service
