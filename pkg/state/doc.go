// Package state holds the client's view of every target's parameter values
// and merges server-pushed updates into it.
//
// # Explicit Store
//
// [Store] is a plain observable map: Get, SetOptimistic/Confirm, and a
// subscribe/notify mechanism. Nothing in the client depends on implicit
// reactivity; consumers subscribe and re-render from the values they are
// handed.
//
// # Two-Phase Values
//
// Each parameter carries a confirmed value (last state acknowledged by the
// server) and an optional optimistic value (a local write accepted by the
// request layer but not yet echoed back on the event channel). The visible
// value is the optimistic one while it exists. If the confirming write
// ultimately fails, the optimistic value reverts to the confirmed one.
//
// # Reconciliation
//
// [Reconciler.ApplyRemoteUpdate] merges a pushed value unless the write
// scheduler holds a pending edit for that same key: while the operator is
// dragging a slider, remote updates for that key are dropped rather than
// applied, so the slider never visibly snaps back. The guard is keyed per
// (target, parameter), so an edit in flight on one key never blocks other
// keys from reconciling. When the client is idle the event channel is
// authoritative.
//
// The reconciler also suppresses echoes: the client updates optimistically
// on request acceptance, so the later push event carrying that same change
// must land as a no-op instead of a second visible change.
package state
