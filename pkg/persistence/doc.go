// Package persistence stores the station catalog snapshot on disk so a
// fresh session can serve the catalog before the first network fetch
// completes. Corrupt or missing files are treated as a cache miss, never as
// a fatal error.
package persistence
