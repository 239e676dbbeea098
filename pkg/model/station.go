package model

// Station is one entry of the remote station catalog.
type Station struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Country string `json:"country,omitempty"`
	Genre   string `json:"genre,omitempty"`
	Bitrate int    `json:"bitrate,omitempty"`
}

// StationQuery parameterizes a catalog read.
// The zero value is the default query (top stations, no filters), which is
// the only query class served from the tiered cache.
type StationQuery struct {
	// Search is a free-text search term.
	Search string `json:"search,omitempty"`

	// Country restricts results to one country code.
	Country string `json:"country,omitempty"`

	// Genre restricts results to one genre.
	Genre string `json:"genre,omitempty"`

	// Sort selects the result ordering ("popularity" when empty).
	Sort string `json:"sort,omitempty"`
}

// IsDefault reports whether the query is the unfiltered default.
// Only default queries are cacheable; filtered queries always reflect a
// fresh fetch.
func (q StationQuery) IsDefault() bool {
	return q.Search == "" && q.Country == "" && q.Genre == "" &&
		(q.Sort == "" || q.Sort == "popularity")
}

// StationList is a page of catalog results.
type StationList struct {
	Items []Station `json:"items"`
	Total int       `json:"total"`
}
