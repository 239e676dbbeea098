package api

import (
	"context"
	"net/url"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// SearchStations queries the station catalog. The default (unfiltered)
// query returns the top stations by popularity.
func (c *Client) SearchStations(ctx context.Context, query model.StationQuery) (model.StationList, error) {
	params := url.Values{}
	if query.Search != "" {
		params.Set("search", query.Search)
	}
	if query.Country != "" {
		params.Set("country", query.Country)
	}
	if query.Genre != "" {
		params.Set("genre", query.Genre)
	}
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}

	path := "/api/v1/stations"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list model.StationList
	err := c.doJSON(ctx, "GET", path, nil, &list)
	c.logRequest("", "search_stations", err)
	return list, err
}
