package discovery

import (
	"errors"
	"strings"
	"time"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// mDNS service parameters.
const (
	// ServiceType is the mDNS service type appliances advertise.
	ServiceType = "_roomtone._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default timeout for one-shot find operations.
	BrowseTimeout = 10 * time.Second
)

// Discovery errors.
var (
	ErrNotFound = errors.New("no appliance found")
)

// TXT record keys.
const (
	txtKeyName    = "nm"
	txtKeyModel   = "md"
	txtKeyVersion = "vs"
)

// ApplianceService describes one discovered appliance.
type ApplianceService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the raw mDNS hostname, e.g. "kitchen.local.".
	Host string

	// Port is the advertised API port.
	Port uint16

	// Addresses are the resolved IP addresses, all interfaces merged.
	Addresses []string

	// Name is the friendly name from the TXT record.
	Name string

	// Model is the hardware model from the TXT record.
	Model string

	// Version is the firmware version from the TXT record.
	Version string
}

// Target converts the service to a reachable target keyed by its
// normalized host.
func (s *ApplianceService) Target() model.Target {
	name := s.Name
	if name == "" {
		name = s.InstanceName
	}
	return model.Target{
		ID:        model.NormalizeTargetID(s.Host),
		Name:      name,
		Reachable: true,
	}
}

// applianceTXT is the decoded TXT record content.
type applianceTXT struct {
	Name    string
	Model   string
	Version string
}

// decodeTXT parses "key=value" TXT strings. Unknown keys are ignored and
// malformed entries are skipped, per DNS-SD convention.
func decodeTXT(text []string) applianceTXT {
	var txt applianceTXT
	for _, s := range text {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		switch key {
		case txtKeyName:
			txt.Name = value
		case txtKeyModel:
			txt.Model = value
		case txtKeyVersion:
			txt.Version = value
		}
	}
	return txt
}
