package service

import (
	"context"
	"sync"

	"github.com/roomtone/roomtone-go/pkg/api"
	"github.com/roomtone/roomtone-go/pkg/catalog"
	"github.com/roomtone/roomtone-go/pkg/coalesce"
	"github.com/roomtone/roomtone-go/pkg/events"
	"github.com/roomtone/roomtone-go/pkg/faults"
	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/persistence"
	"github.com/roomtone/roomtone-go/pkg/state"
	"github.com/roomtone/roomtone-go/pkg/zone"
)

// ControllerService orchestrates the client for one appliance network.
type ControllerService struct {
	mu sync.RWMutex

	config Config
	state  ServiceState
	logger log.Logger

	client     *api.Client
	scheduler  *coalesce.Scheduler
	store      *state.Store
	reconciler *state.Reconciler
	zones      *zone.Registry
	propagator *zone.Propagator
	faults     *faults.Aggregator
	catalog    *catalog.Cache
	channel    *events.Channel

	// targets holds all known devices by normalized host key.
	targets map[model.TargetID]model.Target

	onTargetChanged func(model.Target)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewControllerService creates a controller service.
func NewControllerService(config Config) (*ControllerService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := log.OrNoop(config.Logger)

	client, err := api.NewClient(config.BaseURL, logger)
	if err != nil {
		return nil, err
	}

	svc := &ControllerService{
		config:  config,
		state:   StateIdle,
		logger:  logger,
		client:  client,
		store:   state.NewStore(),
		zones:   zone.NewRegistry(),
		faults:  faults.NewAggregatorWithTTL(config.FaultTTL),
		targets: make(map[model.TargetID]model.Target),
	}
	svc.scheduler = coalesce.NewSchedulerWithConfig(config.Write, svc.flush, logger)
	svc.reconciler = state.NewReconciler(svc.store, svc.scheduler, logger)
	svc.propagator = zone.NewPropagator(svc.zones, config.Policy, logger)

	var snapshots *persistence.CatalogStore
	if config.SnapshotPath != "" {
		snapshots = persistence.NewCatalogStore(config.SnapshotPath)
	}
	svc.catalog = catalog.NewCache(config.Catalog, client, snapshots, logger)

	if config.EventsURL != "" {
		channelConfig := config.Events
		channelConfig.URL = config.EventsURL
		svc.channel = events.NewChannel(channelConfig, logger)
		svc.subscribePushEvents()
	}

	// The local device always exists.
	svc.targets[model.LocalTargetID] = model.Target{
		ID:        model.LocalTargetID,
		Name:      "Local",
		Reachable: true,
	}

	return svc, nil
}

// State returns the current service state.
func (s *ControllerService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start starts the service and, when configured, opens the push channel.
func (s *ControllerService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if s.channel != nil {
		if err := s.channel.Start(); err != nil {
			s.mu.Lock()
			s.state = StateStopped
			s.mu.Unlock()
			return err
		}
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

// Stop stops the service: the push channel closes, in-flight edit sessions
// are dropped, and outstanding catalog loads are cancelled.
func (s *ControllerService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.channel != nil {
		s.channel.Stop()
	}
	s.scheduler.Stop()
	s.catalog.Stop()
	s.faults.Clear()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}

// runCtx returns the service lifetime context.
func (s *ControllerService) runCtx() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// Targets returns all known devices.
func (s *ControllerService) Targets() []model.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make([]model.Target, 0, len(s.targets))
	for _, t := range s.targets {
		targets = append(targets, t)
	}
	return targets
}

// Target returns one device by its normalized key.
func (s *ControllerService) Target(id model.TargetID) (model.Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[id]
	return t, ok
}

// RegisterTarget adds or updates a device, e.g. from mDNS discovery.
func (s *ControllerService) RegisterTarget(target model.Target) {
	s.mu.Lock()
	s.targets[target.ID] = target
	cb := s.onTargetChanged
	s.mu.Unlock()

	if cb != nil {
		cb(target)
	}
}

// setTargetReachable flips a device's reachability flag.
func (s *ControllerService) setTargetReachable(id model.TargetID, reachable bool) {
	s.mu.Lock()
	target, ok := s.targets[id]
	if !ok {
		target = model.Target{ID: id, Name: string(id)}
	}
	target.Reachable = reachable
	s.targets[id] = target
	cb := s.onTargetChanged
	s.mu.Unlock()

	if cb != nil {
		cb(target)
	}

	e := log.NewEvent(log.CategoryState)
	e.Target = string(id)
	if reachable {
		e.Message = "reachable"
	} else {
		e.Message = "unreachable"
	}
	s.logger.Log(e)
}

// OnTargetChanged sets a callback for device registration and reachability
// changes.
func (s *ControllerService) OnTargetChanged(cb func(model.Target)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTargetChanged = cb
}

// OnStateChange subscribes to visible parameter value changes. The returned
// function unsubscribes.
func (s *ControllerService) OnStateChange(cb func(key model.ParamKey, value any)) func() {
	return s.store.Subscribe(cb)
}

// OnFaultsChange sets a callback for the visible propagation failure list.
func (s *ControllerService) OnFaultsChange(cb func([]model.TargetError)) {
	s.faults.OnChange(cb)
}

// OnZoneChanged sets a callback for zone creation and membership edits.
func (s *ControllerService) OnZoneChanged(cb func(*zone.Zone)) {
	s.zones.OnZoneChanged(cb)
}

// OnZoneDissolved sets a callback for zone dissolution.
func (s *ControllerService) OnZoneDissolved(cb func(zoneID string)) {
	s.zones.OnZoneDissolved(cb)
}

// Faults returns the currently visible propagation failures.
func (s *ControllerService) Faults() []model.TargetError {
	return s.faults.Errors()
}

// ClearFaults empties the visible failure list immediately.
func (s *ControllerService) ClearFaults() {
	s.faults.Clear()
}

// Value returns the visible value of one parameter.
func (s *ControllerService) Value(key model.ParamKey) (any, bool) {
	return s.store.Get(key)
}

// DeviceStatus reads the live summary state of one device.
func (s *ControllerService) DeviceStatus(ctx context.Context, target model.TargetID) (model.DeviceStatus, error) {
	return s.client.DeviceStatus(ctx, target)
}
