package model

import "testing"

func TestNormalizeTargetID(t *testing.T) {
	tests := []struct {
		name string
		host string
		want TargetID
	}{
		{"Empty", "", LocalTargetID},
		{"Whitespace", "  ", LocalTargetID},
		{"PlainHost", "living-room.local", "living-room.local"},
		{"Uppercase", "Living-Room.LOCAL", "living-room.local"},
		{"WithPort", "living-room.local:8080", "living-room.local"},
		{"TrailingDot", "kitchen.local.", "kitchen.local"},
		{"IPWithPort", "192.168.1.40:80", "192.168.1.40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTargetID(tt.host); got != tt.want {
				t.Errorf("NormalizeTargetID(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestFilterParam(t *testing.T) {
	if got := FilterParam(0); got != "eq_band_00" {
		t.Errorf("FilterParam(0) = %q, want eq_band_00", got)
	}
	if got := FilterParam(9); got != "eq_band_09" {
		t.Errorf("FilterParam(9) = %q, want eq_band_09", got)
	}
}

func TestParamKeyString(t *testing.T) {
	key := ParamKey{Target: "kitchen.local", Name: ParamVolume}
	if got := key.String(); got != "kitchen.local/volume" {
		t.Errorf("String() = %q, want kitchen.local/volume", got)
	}
}

func TestStationQueryIsDefault(t *testing.T) {
	if !(StationQuery{}).IsDefault() {
		t.Error("zero query should be default")
	}
	if !(StationQuery{Sort: "popularity"}).IsDefault() {
		t.Error("default sort should still be default")
	}
	if (StationQuery{Sort: "name"}).IsDefault() {
		t.Error("non-default sort should bypass the cache")
	}
	if (StationQuery{Search: "jazz"}).IsDefault() {
		t.Error("search query should not be default")
	}
	if (StationQuery{Country: "DE"}).IsDefault() {
		t.Error("country filter should not be default")
	}
}
