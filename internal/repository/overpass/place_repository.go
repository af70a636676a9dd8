// Package overpass looks up OpenStreetMap place names through the Overpass API.
package overpass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	geo "github.com/kellydunn/golang-geo"
	"github.com/serjvanilla/go-overpass"
)

// ErrNoPlace is returned when no named place lies within the search radius.
var ErrNoPlace = errors.New("no named place nearby")

const placeKinds = "city|town|village|hamlet|suburb|locality|isolated_dwelling"

// PlaceRepository names coordinates after the nearest OpenStreetMap place node.
type PlaceRepository struct {
	client  *overpass.Client
	radius  int
	timeout time.Duration
}

// NewPlaceRepository creates a repository querying endpoint for places within radius metres.
func NewPlaceRepository(endpoint string, radius int, timeout time.Duration) *PlaceRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &PlaceRepository{
		client:  &client,
		radius:  radius,
		timeout: timeout,
	}
}

// PlaceNear returns the name of the closest place node around the point.
func (r *PlaceRepository) PlaceNear(ctx context.Context, lat, lon float64) (string, error) {
	query := fmt.Sprintf(`
		[out:json][timeout:%d];
		node(around:%d,%f,%f)["place"~"%s"]["name"];
		out body;
	`, int(r.timeout.Seconds())+1, r.radius, lat, lon, placeKinds)

	result, err := r.executeQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to execute place query: %w", err)
	}

	origin := geo.NewPoint(lat, lon)
	best, bestDist := "", -1.0
	for _, node := range result.Nodes {
		name := node.Tags["name"]
		if name == "" {
			continue
		}
		d := origin.GreatCircleDistance(geo.NewPoint(node.Lat, node.Lon))
		if bestDist < 0 || d < bestDist || (d == bestDist && name < best) {
			best, bestDist = name, d
		}
	}

	if best == "" {
		return "", ErrNoPlace
	}
	return best, nil
}

// executeQuery runs the query and gives up when ctx is done.
func (r *PlaceRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type response struct {
		result overpass.Result
		err    error
	}
	done := make(chan response, 1)
	go func() {
		result, err := r.client.Query(query)
		done <- response{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-done:
		if resp.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", resp.err)
		}
		return &resp.result, nil
	}
}
