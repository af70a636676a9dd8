package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
	"github.com/DanilSvechnikar/wildfire-detection/internal/testutil"
)

var markersLine = regexp.MustCompile(`var markers = (.*);`)

// embeddedMarkers extracts the marker JSON from a saved map document.
func embeddedMarkers(t *testing.T, path string) []model.MapMarker {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read map: %v", err)
	}
	match := markersLine.FindSubmatch(data)
	if match == nil {
		t.Fatalf("map document has no marker data:\n%s", data)
	}
	var markers []model.MapMarker
	if err := json.Unmarshal(match[1], &markers); err != nil {
		t.Fatalf("Failed to decode markers %s: %v", match[1], err)
	}
	return markers
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map_data", "map.html")
	b, err := NewBuilder(path, testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b
}

func TestBuilder_AddMarkerRewritesDocument(t *testing.T) {
	b := newTestBuilder(t)

	if err := b.AddMarker(55.75, 37.61, "a.jpg: fire (0.75)"); err != nil {
		t.Fatalf("AddMarker failed: %v", err)
	}
	if got := embeddedMarkers(t, b.Path()); len(got) != 1 {
		t.Fatalf("expected 1 marker after first save, got %d", len(got))
	}

	if err := b.Add(model.MapMarker{Latitude: 40, Longitude: -3, Label: "b.jpg: no fire", Fire: false}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	want := []model.MapMarker{
		{Latitude: 55.75, Longitude: 37.61, Label: "a.jpg: fire (0.75)"},
		{Latitude: 40, Longitude: -3, Label: "b.jpg: no fire"},
	}
	if diff := cmp.Diff(want, embeddedMarkers(t, b.Path())); diff != "" {
		t.Errorf("saved markers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, b.Markers()); diff != "" {
		t.Errorf("in-memory markers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_EscapesLabels(t *testing.T) {
	b := newTestBuilder(t)

	label := `</script><script>alert(1)</script>`
	if err := b.AddMarker(1, 2, label); err != nil {
		t.Fatalf("AddMarker failed: %v", err)
	}

	data, _ := os.ReadFile(b.Path())
	if strings.Contains(string(data), label) {
		t.Error("label must be escaped in the document")
	}
	if got := embeddedMarkers(t, b.Path()); got[0].Label != label {
		t.Errorf("label should round-trip through JSON, got %q", got[0].Label)
	}
}

func TestBuilder_NoTempFilesLeft(t *testing.T) {
	b := newTestBuilder(t)
	for i := 0; i < 3; i++ {
		if err := b.AddMarker(float64(i), float64(i), "m"); err != nil {
			t.Fatalf("AddMarker failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(b.Path()))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "map.html" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only map.html, found %v", names)
	}
}

func TestBuilder_Reset(t *testing.T) {
	b := newTestBuilder(t)
	_ = b.AddMarker(1, 1, "x")

	if err := b.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(b.Markers()) != 0 || len(embeddedMarkers(t, b.Path())) != 0 {
		t.Error("Reset should clear markers in memory and on disk")
	}
}
