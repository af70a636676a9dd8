// Package location resolves where an image was taken.
package location

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// PlaceFinder names the place closest to a coordinate.
type PlaceFinder interface {
	PlaceNear(ctx context.Context, lat, lon float64) (string, error)
}

// Resolver turns image paths into coordinates, using EXIF GPS tags when they are complete and a
// random synthetic table row otherwise. It never fails.
type Resolver struct {
	table  *SyntheticTable
	places PlaceFinder
	logger *logger.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewResolver creates a Resolver. places may be nil; rnd may be nil for a time-seeded source.
func NewResolver(table *SyntheticTable, places PlaceFinder, rnd *rand.Rand, logger *logger.Logger) *Resolver {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Resolver{
		table:  table,
		places: places,
		logger: logger,
		rnd:    rnd,
	}
}

// Resolve returns the decimal latitude and longitude for the image.
func (r *Resolver) Resolve(path string) (float64, float64) {
	loc := r.Locate(context.Background(), path)
	return loc.Latitude, loc.Longitude
}

// Locate resolves the image location together with its source and place name.
func (r *Resolver) Locate(ctx context.Context, path string) model.Location {
	lat, lon, err := ReadGPS(path)
	if err == nil {
		loc := model.Location{Latitude: lat, Longitude: lon, Source: model.SourceEXIF}
		if r.places != nil {
			place, err := r.places.PlaceNear(ctx, lat, lon)
			if err != nil {
				r.logger.Warning("Place lookup failed for %s: %v", path, err)
			}
			loc.Place = place
		}
		return loc
	}

	r.logger.Info("No usable GPS metadata in %s (%v), using synthetic coordinates", path, err)

	r.mu.Lock()
	place, err := r.table.Sample(r.rnd)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warning("Synthetic coordinates unavailable for %s: %v", path, err)
		return model.Location{Source: model.SourceNone}
	}

	return model.Location{
		Latitude:  place.Latitude,
		Longitude: place.Longitude,
		Place:     place.Name,
		Source:    model.SourceSynthetic,
	}
}
