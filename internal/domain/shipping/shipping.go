package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Zone groups states that share a flat shipping fee.
type Zone struct {
	ID     string
	Name   string
	States []string
	Fee    decimal.Decimal
}

// ZoneNotFoundError indicates no zone covers the requested state.
type ZoneNotFoundError struct {
	State string
}

func (e *ZoneNotFoundError) Error() string {
	return fmt.Sprintf("no shipping zone covers state %q", e.State)
}

// Repository lists the configured shipping zones.
type Repository interface {
	List(ctx context.Context) ([]Zone, error)
}

// Covers reports whether state belongs to the zone. Matching ignores case
// and surrounding whitespace.
func (z Zone) Covers(state string) bool {
	state = strings.TrimSpace(state)
	for _, s := range z.States {
		if strings.EqualFold(strings.TrimSpace(s), state) {
			return true
		}
	}
	return false
}

// Resolve returns the first zone in zones covering state.
func Resolve(zones []Zone, state string) (*Zone, error) {
	if strings.TrimSpace(state) == "" {
		return nil, &ZoneNotFoundError{State: state}
	}
	for i := range zones {
		if zones[i].Covers(state) {
			return &zones[i], nil
		}
	}
	return nil, &ZoneNotFoundError{State: state}
}

// Find returns the zone with the given id.
func Find(zones []Zone, id string) (*Zone, bool) {
	for i := range zones {
		if zones[i].ID == id {
			return &zones[i], true
		}
	}
	return nil, false
}
