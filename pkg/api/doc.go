// Package api implements the request/response contract of the RoomTone
// appliance: JSON over HTTP, with the target device identity embedded in the
// request path. The local appliance proxies requests addressed to remote
// peer targets, so one base URL reaches every device.
//
// Every operation takes a context for cancellation; a superseded request
// cancelled through its context surfaces as the context error, which callers
// treat as a silent no-op rather than a failure.
//
// Write operations return a success/failure envelope. Any non-success reply
// is reported as a [StatusError] so callers can feed it into propagation
// error handling uniformly.
package api
