package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newOverpassServer(t *testing.T, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if gotQuery != nil {
			*gotQuery = r.FormValue("data")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPlaceRepository_PicksNearest(t *testing.T) {
	body := `{
		"osm3s": {"timestamp_osm_base": "2024-06-01T00:00:00Z"},
		"elements": [
			{"type": "node", "id": 1, "lat": 55.80, "lon": 37.70, "tags": {"place": "town", "name": "Far Town"}},
			{"type": "node", "id": 2, "lat": 55.751, "lon": 37.611, "tags": {"place": "city", "name": "Moscow"}},
			{"type": "node", "id": 3, "lat": 55.7505, "lon": 37.6105, "tags": {"place": "city"}}
		]
	}`
	var query string
	server := newOverpassServer(t, body, &query)

	repo := NewPlaceRepository(server.URL, 5000, 5*time.Second)
	name, err := repo.PlaceNear(context.Background(), 55.75, 37.61)
	if err != nil {
		t.Fatalf("PlaceNear failed: %v", err)
	}
	if name != "Moscow" {
		t.Errorf("expected Moscow, got %q", name)
	}
	if !strings.Contains(query, "around:5000,55.750000,37.610000") {
		t.Errorf("unexpected query %q", query)
	}
}

func TestPlaceRepository_NoPlace(t *testing.T) {
	server := newOverpassServer(t, `{"osm3s": {"timestamp_osm_base": "2024-06-01T00:00:00Z"}, "elements": []}`, nil)

	_, err := NewPlaceRepository(server.URL, 100, time.Second).PlaceNear(context.Background(), 0, 0)
	if !errors.Is(err, ErrNoPlace) {
		t.Errorf("expected ErrNoPlace, got %v", err)
	}
}

func TestPlaceRepository_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := NewPlaceRepository(server.URL, 100, time.Second).PlaceNear(context.Background(), 0, 0); err == nil {
		t.Error("expected error from failing server")
	}
}

func TestPlaceRepository_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPlaceRepository(server.URL, 100, 5*time.Second).PlaceNear(ctx, 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
