package zone

import (
	"errors"
	"time"

	"github.com/roomtone/roomtone-go/pkg/model"
)

// Zone errors.
var (
	ErrZoneNotFound  = errors.New("zone not found")
	ErrZoneExists    = errors.New("zone already exists")
	ErrAlreadyLinked = errors.New("target already belongs to a zone")
	ErrTooFewMembers = errors.New("zone needs at least two members")
	ErrNotMember     = errors.New("target is not a member of the zone")
)

// Zone is a named set of targets sharing parameter values.
type Zone struct {
	// ID is the unique zone identifier.
	ID string

	// Name is the display name.
	Name string

	// Members are the linked target identities.
	Members []model.TargetID

	// Source is the member whose values seeded the zone when it formed.
	Source model.TargetID

	// CreatedAt is when the zone was formed.
	CreatedAt time.Time
}

// Contains reports whether target is a member.
func (z *Zone) Contains(target model.TargetID) bool {
	for _, m := range z.Members {
		if m == target {
			return true
		}
	}
	return false
}

// Others returns all members except target.
func (z *Zone) Others(target model.TargetID) []model.TargetID {
	others := make([]model.TargetID, 0, len(z.Members))
	for _, m := range z.Members {
		if m != target {
			others = append(others, m)
		}
	}
	return others
}

// clone returns a deep copy so callers never alias registry state.
func (z *Zone) clone() *Zone {
	cp := *z
	cp.Members = append([]model.TargetID(nil), z.Members...)
	return &cp
}
