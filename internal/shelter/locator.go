// Package shelter implements nearest-shelter lookup over the spatial store.
package shelter

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// ErrInvalidLimit marks a non-positive result limit.
var ErrInvalidLimit = eris.New("shelter: limit must be positive")

// ErrInvalidCoordinate marks non-finite or out-of-world coordinates.
var ErrInvalidCoordinate = eris.New("shelter: invalid coordinate")

// Locator finds the nearest shelters to a point. Distances are great-circle
// (haversine) kilometers; ties preserve dataset order.
type Locator struct {
	store        dataset.Store
	defaultLimit int
	maxLimit     int
}

// NewLocator builds a locator over the given store.
func NewLocator(store dataset.Store, cfg config.ShelterConfig) *Locator {
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 3
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 10
	}
	return &Locator{store: store, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// DefaultLimit is the limit applied when the caller does not pass one.
func (l *Locator) DefaultLimit() int { return l.defaultLimit }

// Nearby returns up to limit shelters ordered by non-decreasing distance.
// The limit is capped at the configured maximum and at the number of known
// shelters.
func (l *Locator) Nearby(ctx context.Context, lat, lon float64, limit int) ([]dataset.ShelterDistance, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, eris.Wrapf(ErrInvalidCoordinate, "lat=%v lon=%v", lat, lon)
	}
	if limit <= 0 {
		return nil, eris.Wrapf(ErrInvalidLimit, "limit=%d", limit)
	}
	if limit > l.maxLimit {
		limit = l.maxLimit
	}

	count, err := l.store.ShelterCount(ctx)
	if err != nil {
		return nil, err
	}
	if limit > count {
		limit = count
	}
	if limit == 0 {
		return []dataset.ShelterDistance{}, nil
	}

	return l.store.NearbyShelters(ctx, lat, lon, limit)
}
