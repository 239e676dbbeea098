// Package coalesce implements the write scheduler that turns a stream of
// rapid local parameter edits into a bounded-rate sequence of network writes.
//
// # Scheduling Behavior
//
// Each parameter key is rate-limited independently. A submit on an idle key
// flushes immediately (leading edge). Further submits within ThrottleDelay
// of the last flush are deferred to a throttle flush scheduled at exactly
// ThrottleDelay after that flush. Independently, every submit reschedules a
// final flush at FinalDelay, so a steady stream of edits faster than
// ThrottleDelay still produces a flush carrying the near-final value at
// least every FinalDelay.
//
// A flush always sends the value captured at flush time, never the value at
// submit time, so the last flush reflects the last edit. The correctness
// property is "the last submitted value for a key is always eventually
// flushed", not "every intermediate value is sent".
//
// # Edit Sessions
//
// [Scheduler.Finalize] ends an edit session (e.g. the operator released a
// slider): it cancels the key's timers and performs one last unconditional
// flush with the current value, so the session does not wait out FinalDelay.
//
// # Failure Semantics
//
// A failed flush is logged and not retried here; the next submit or finalize
// naturally re-sends the then-current value.
package coalesce
