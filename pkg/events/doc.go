// Package events maintains the push event channel to the appliance: a
// long-lived websocket on which the server announces parameter changes, zone
// membership changes and device reachability.
//
// The channel reconnects on its own with doubling backoff and notifies the
// owner on each (re)connect so higher layers can resync state that may have
// changed while the channel was down. Malformed event payloads are logged as
// warnings and dropped; they never terminate the channel.
package events
