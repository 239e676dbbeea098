package service

import (
	"context"

	"github.com/roomtone/roomtone-go/pkg/catalog"
	"github.com/roomtone/roomtone-go/pkg/model"
)

// Stations resolves a station catalog query through the tiered cache.
// Filtered queries always hit the network; the default query is served from
// the freshest tier that still holds it.
func (s *ControllerService) Stations(ctx context.Context, query model.StationQuery) catalog.Result {
	return s.catalog.Get(ctx, query)
}

// OnCatalogRefresh sets the callback invoked when a background catalog
// refresh changed the visible station list.
func (s *ControllerService) OnCatalogRefresh(cb func(catalog.Result)) {
	s.catalog.OnRefresh(cb)
}
