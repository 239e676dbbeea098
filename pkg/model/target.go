package model

import (
	"net"
	"strings"
)

// TargetID is the normalized identity of a controllable device.
// It is the lowercased host portion of the device's network address,
// or the reserved value [LocalTargetID].
type TargetID string

// LocalTargetID is the reserved identity of the local/primary device,
// i.e. the appliance this client is directly connected to.
const LocalTargetID TargetID = "local"

// NormalizeTargetID derives a TargetID from a host address.
// Ports and surrounding whitespace are stripped and the host is lowercased,
// so "Living-Room.local:8080" and "living-room.local" map to the same key.
// An empty host maps to LocalTargetID.
func NormalizeTargetID(host string) TargetID {
	host = strings.TrimSpace(host)
	if host == "" {
		return LocalTargetID
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return TargetID(strings.ToLower(strings.Trim(host, ".")))
}

// IsLocal reports whether the target is the local/primary device.
func (id TargetID) IsLocal() bool {
	return id == LocalTargetID
}

// Target is one controllable device, local or remote.
type Target struct {
	// ID is the normalized host key.
	ID TargetID

	// Name is the display name reported by the device.
	Name string

	// Reachable indicates the device currently answers on the network.
	Reachable bool
}
