package report

import (
	"strings"
	"testing"
	"time"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

func TestResults(t *testing.T) {
	out := Results([]dto.ResultRow{
		{Name: "a.jpg", Label: dto.LabelFire, Probability: 0.3, Latitude: 40, Longitude: -3, Place: "Madrid"},
		{Name: "b.png", Label: dto.LabelNoFire, Latitude: 55.75, Longitude: 37.61},
	})

	for _, want := range []string{"a.jpg", "0.30", "40.000000", "-3.000000", "Madrid", "no fire", "2 IMAGES", "1 FIRE"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestSkipped(t *testing.T) {
	if out := Skipped(nil); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
	out := Skipped([]dto.SkippedFile{{Path: "broken.jpg", Error: "cannot decode"}})
	if !strings.Contains(out, "broken.jpg") || !strings.Contains(out, "cannot decode") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestRuns(t *testing.T) {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	out := Runs([]model.Run{
		{ID: 2, Directory: "forest", StartedAt: started},
		{ID: 1, Directory: "forest", StartedAt: started, FinishedAt: &finished, Processed: 4, WithFire: 1},
	})

	if !strings.Contains(out, "running") || !strings.Contains(out, "1.5s") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestVideoAndLocation(t *testing.T) {
	if out := Video(dto.VideoSummary{Source: "clip.mp4", Frames: 120, FramesWithFire: 7, MaxProbability: 0.914}); !strings.Contains(out, "0.91") {
		t.Errorf("unexpected video table:\n%s", out)
	}
	out := Location("a.jpg", model.Location{Latitude: 40, Longitude: -3, Source: model.SourceEXIF})
	if !strings.Contains(out, "exif") || !strings.Contains(out, "-3.000000") {
		t.Errorf("unexpected location table:\n%s", out)
	}
}
