package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Config configures browser behavior.
type Config struct {
	// Timeout is the default timeout for one-shot find operations.
	// Default: BrowseTimeout.
	Timeout time.Duration

	// Interface specifies which network interface to browse on.
	// Empty string means all interfaces.
	Interface string
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{Timeout: BrowseTimeout}
}

// Browser browses for appliances using zeroconf.
type Browser struct {
	config Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewBrowser creates a new appliance browser.
func NewBrowser(config Config) *Browser {
	if config.Timeout <= 0 {
		config.Timeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse searches for appliances until the context is cancelled.
// Announcements from multiple interfaces are aggregated by instance name:
// an appliance is reported on added once, and on removed once all its
// addresses have disappeared. Both channels close when browsing ends.
func (b *Browser) Browse(ctx context.Context) (added, removed <-chan *ApplianceService, err error) {
	browseCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *ApplianceService)
	gone := make(chan *ApplianceService)

	entries := make(chan *zeroconf.ServiceEntry)
	entriesRemoved := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		defer close(gone)

		// Track services by instance name, aggregating addresses.
		services := make(map[string]*ApplianceService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToAppliance(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-browseCtx.Done():
					return
				}

			case entry, ok := <-entriesRemoved:
				if !ok {
					continue
				}
				existing, found := services[entry.Instance]
				if !found {
					continue
				}
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) > 0 {
					continue
				}
				delete(services, entry.Instance)
				select {
				case gone <- existing:
				case <-browseCtx.Done():
					return
				}

			case <-browseCtx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(browseCtx, ServiceType, Domain, entries, entriesRemoved, b.browserOptions()...)
	}()

	return out, gone, nil
}

// FindFirst returns the first appliance found, or ErrNotFound after the
// configured timeout.
func (b *Browser) FindFirst(ctx context.Context) (*ApplianceService, error) {
	findCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	added, _, err := b.Browse(findCtx)
	if err != nil {
		return nil, err
	}

	select {
	case svc, ok := <-added:
		if !ok {
			return nil, ErrNotFound
		}
		return svc, nil
	case <-findCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrNotFound
	}
}

// Stop cancels any active browse.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToAppliance converts a zeroconf entry to an ApplianceService.
func entryToAppliance(entry *zeroconf.ServiceEntry) *ApplianceService {
	if entry == nil {
		return nil
	}
	txt := decodeTXT(entry.Text)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &ApplianceService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Name:         txt.Name,
		Model:        txt.Model,
		Version:      txt.Version,
	}
}

// mergeAddresses adds new addresses to the existing list, skipping
// duplicates.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
