package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/testutil"
)

type stubPredictor struct {
	results map[string][]dto.DetectionResult
	errs    map[string]error
	calls   []string
}

func (p *stubPredictor) Predict(_ context.Context, path, annotatedPath string) ([]dto.DetectionResult, error) {
	p.calls = append(p.calls, filepath.Base(path))
	if err := p.errs[filepath.Base(path)]; err != nil {
		return nil, err
	}
	return p.results[filepath.Base(path)], nil
}

func TestAdapter_DetectFiltersAndOrders(t *testing.T) {
	cfg := testutil.Config(t)
	predictor := &stubPredictor{
		results: map[string][]dto.DetectionResult{
			"a.jpg": {
				{Label: "fire", Confidence: 0.9},
				{Label: "smoke", Confidence: 0.15},
				{Label: "person", Confidence: 0.99},
			},
			"b.png": {},
		},
	}
	adapter := NewAdapter(predictor, cfg, testutil.Logger(t))

	got := adapter.Detect(context.Background(), "dir/a.jpg", "dir/b.png")

	if len(got) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(got))
	}
	if diff := cmp.Diff([]float64{0.9}, got[0].Confidences); diff != "" {
		t.Errorf("confidences mismatch:\n%s", diff)
	}
	if len(got[1].Confidences) != 0 || got[1].Failed() {
		t.Errorf("expected empty, successful evaluation for b.png, got %+v", got[1])
	}
	if got[0].AnnotatedPath != filepath.Join(cfg.PredictedDirectory, "a.jpg") {
		t.Errorf("unexpected annotated path %s", got[0].AnnotatedPath)
	}
	if _, err := os.Stat(cfg.PredictedDirectory); err != nil {
		t.Errorf("predicted directory should be created: %v", err)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.png"}, predictor.calls); diff != "" {
		t.Errorf("predictor calls mismatch:\n%s", diff)
	}
}

func TestAdapter_ThresholdIsInclusive(t *testing.T) {
	cfg := testutil.Config(t)
	predictor := &stubPredictor{results: map[string][]dto.DetectionResult{
		"a.jpg": {{Label: "fire", Confidence: 0.20}, {Label: "fire", Confidence: 0.1999}},
	}}

	got := NewAdapter(predictor, cfg, testutil.Logger(t)).Detect(context.Background(), "a.jpg")

	if diff := cmp.Diff([]float64{0.20}, got[0].Confidences); diff != "" {
		t.Errorf("confidences mismatch:\n%s", diff)
	}
}

func TestAdapter_EmptyClassListKeepsAll(t *testing.T) {
	cfg := testutil.Config(t)
	cfg.FireClasses = nil
	predictor := &stubPredictor{results: map[string][]dto.DetectionResult{
		"a.jpg": {{Label: "person", Confidence: 0.5}, {Label: "Fire", Confidence: 0.6}},
	}}

	got := NewAdapter(predictor, cfg, testutil.Logger(t)).Detect(context.Background(), "a.jpg")

	if diff := cmp.Diff([]float64{0.5, 0.6}, got[0].Confidences); diff != "" {
		t.Errorf("confidences mismatch:\n%s", diff)
	}
}

func TestAdapter_FailSoft(t *testing.T) {
	cfg := testutil.Config(t)
	predictor := &stubPredictor{
		results: map[string][]dto.DetectionResult{"c.jpeg": {{Label: "fire", Confidence: 0.4}}},
		errs:    map[string]error{"broken.jpg": errors.New("corrupt image")},
	}
	adapter := NewAdapter(predictor, cfg, testutil.Logger(t))

	got := adapter.Detect(context.Background(), "broken.jpg", "notes.txt", "c.jpeg")

	if len(got) != 3 {
		t.Fatalf("expected 3 evaluations, got %d", len(got))
	}
	if !got[0].Failed() {
		t.Error("expected broken.jpg to fail")
	}
	if !errors.Is(got[1].Err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile for notes.txt, got %v", got[1].Err)
	}
	if got[2].Failed() || len(got[2].Confidences) != 1 {
		t.Errorf("expected c.jpeg to succeed, got %+v", got[2])
	}
	if diff := cmp.Diff([]string{"broken.jpg", "c.jpeg"}, predictor.calls); diff != "" {
		t.Errorf("unsupported files must not reach the predictor:\n%s", diff)
	}
}

func TestAdapter_Supported(t *testing.T) {
	adapter := NewAdapter(&stubPredictor{}, testutil.Config(t), testutil.Logger(t))

	for path, want := range map[string]bool{
		"a.jpg": true, "a.JPEG": true, "a.png": true, "a.mp4": false, "a": false,
	} {
		if got := adapter.Supported(path); got != want {
			t.Errorf("Supported(%s) = %v, expected %v", path, got, want)
		}
	}
}

func TestPostprocessors(t *testing.T) {
	in := []dto.DetectionResult{
		{Label: "fire", Confidence: 0.3},
		{Label: "smoke", Confidence: 0.8},
		{Label: "fire", Confidence: 0.1},
	}

	got := Chain(NewClassFilter([]string{"FIRE"}), NewScoreFilter(0.2))(in)
	if diff := cmp.Diff([]dto.DetectionResult{{Label: "fire", Confidence: 0.3}}, got); diff != "" {
		t.Errorf("filtered mismatch:\n%s", diff)
	}
	if len(in) != 3 {
		t.Error("filters must not modify their input")
	}
}
