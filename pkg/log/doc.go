// Package log provides structured event logging for the RoomTone client.
//
// Components emit [Event] records through the [Logger] interface rather than
// writing free-form text. This keeps a uniform, machine-readable record of
// every network write, push event, cache transition, and failure, which can
// be captured to a compact CBOR file for later inspection or mirrored to the
// console through [SlogAdapter].
//
// Pass nil or [NoopLogger] wherever a Logger is accepted to disable logging.
package log
