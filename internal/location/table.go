package location

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"

	geo "github.com/kellydunn/golang-geo"

	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// ErrEmptyTable is returned when the coordinate table has no usable rows.
var ErrEmptyTable = errors.New("synthetic coordinate table is empty")

// SyntheticTable is the read-only latitude/longitude/place table used when an image has no
// usable GPS metadata. Rows are loaded on first use and cached.
type SyntheticTable struct {
	path string

	mu     sync.Mutex
	rows   []model.Place
	loaded bool
}

// NewSyntheticTable returns a table backed by the CSV file at path.
func NewSyntheticTable(path string) *SyntheticTable {
	return &SyntheticTable{path: path}
}

// NewSyntheticTableFromRows returns an in-memory table.
func NewSyntheticTableFromRows(rows []model.Place) *SyntheticTable {
	return &SyntheticTable{rows: append([]model.Place(nil), rows...), loaded: true}
}

// Rows returns a copy of all rows, loading the file if needed.
func (t *SyntheticTable) Rows() ([]model.Place, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return nil, err
	}
	return append([]model.Place(nil), t.rows...), nil
}

// Sample draws one row uniformly at random.
func (t *SyntheticTable) Sample(rnd *rand.Rand) (model.Place, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return model.Place{}, err
	}
	return t.rows[rnd.IntN(len(t.rows))], nil
}

// Nearest returns the row closest to the point by great-circle distance, and that distance in km.
func (t *SyntheticTable) Nearest(lat, lon float64) (model.Place, float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return model.Place{}, 0, err
	}

	origin := geo.NewPoint(lat, lon)
	best := t.rows[0]
	bestDist := origin.GreatCircleDistance(geo.NewPoint(best.Latitude, best.Longitude))
	for _, row := range t.rows[1:] {
		if d := origin.GreatCircleDistance(geo.NewPoint(row.Latitude, row.Longitude)); d < bestDist {
			best, bestDist = row, d
		}
	}
	return best, bestDist, nil
}

// PlaceNear implements PlaceFinder using the nearest table row.
func (t *SyntheticTable) PlaceNear(_ context.Context, lat, lon float64) (string, error) {
	place, _, err := t.Nearest(lat, lon)
	if err != nil {
		return "", err
	}
	return place.Name, nil
}

// load must be called with mu held. A failed load is retried on the next call.
func (t *SyntheticTable) load() error {
	if t.loaded {
		if len(t.rows) == 0 {
			return ErrEmptyTable
		}
		return nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("failed to open coordinate table: %w", err)
	}
	defer f.Close()

	rows, err := parseTable(f)
	if err != nil {
		return fmt.Errorf("failed to parse coordinate table %s: %w", t.path, err)
	}
	if len(rows) == 0 {
		return ErrEmptyTable
	}

	t.rows = rows
	t.loaded = true
	return nil
}

func parseTable(r io.Reader) ([]model.Place, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	latCol, lonCol, placeCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "latitude", "lat":
			latCol = i
		case "longitude", "lon", "lng":
			lonCol = i
		case "place", "name":
			placeCol = i
		}
	}
	if latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("header %v lacks latitude/longitude columns", header)
	}

	var rows []model.Place
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if latCol >= len(record) || lonCol >= len(record) {
			continue
		}

		lat, errLat := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}

		row := model.Place{Latitude: lat, Longitude: lon}
		if placeCol >= 0 && placeCol < len(record) {
			row.Name = strings.TrimSpace(record[placeCol])
		}
		rows = append(rows, row)
	}

	return rows, nil
}
