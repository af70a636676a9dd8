// Package evaluation turns detector output into per-image fire confidence lists.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
)

// ErrUnsupportedFile is recorded for paths whose extension is not an accepted image type.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Predictor is the object detector. It writes an annotated copy to annotatedPath.
type Predictor interface {
	Predict(ctx context.Context, path, annotatedPath string) ([]dto.DetectionResult, error)
}

// Adapter turns predictor output into per-image fire confidences.
type Adapter struct {
	predictor    Predictor
	predictedDir string
	extensions   map[string]struct{}
	filter       Postprocessor
	logger       *logger.Logger
}

// NewAdapter wraps predictor with the fire class and confidence filters from cfg.
func NewAdapter(predictor Predictor, cfg *config.Config, logger *logger.Logger) *Adapter {
	extensions := make(map[string]struct{}, len(cfg.ImageExtensions))
	for _, ext := range cfg.ImageExtensions {
		extensions[normalizeExt(ext)] = struct{}{}
	}

	return &Adapter{
		predictor:    predictor,
		predictedDir: cfg.PredictedDirectory,
		extensions:   extensions,
		filter:       Chain(NewClassFilter(cfg.FireClasses), NewScoreFilter(cfg.ConfidenceThreshold)),
		logger:       logger,
	}
}

// Supported reports whether path has an accepted image extension.
func (a *Adapter) Supported(path string) bool {
	_, ok := a.extensions[normalizeExt(filepath.Ext(path))]
	return ok
}

// PredictedDirectory is where annotated copies are written.
func (a *Adapter) PredictedDirectory() string {
	return a.predictedDir
}

// Filter applies the fire class and confidence filters.
func (a *Adapter) Filter(detections []dto.DetectionResult) []dto.DetectionResult {
	return a.filter(detections)
}

// Detect evaluates every path in order. A failing path is recorded on its Evaluation and does
// not stop the others.
func (a *Adapter) Detect(ctx context.Context, paths ...string) []dto.Evaluation {
	evaluations := make([]dto.Evaluation, 0, len(paths))

	if err := os.MkdirAll(a.predictedDir, 0755); err != nil {
		err = fmt.Errorf("failed to create predicted directory: %w", err)
		for _, path := range paths {
			evaluations = append(evaluations, dto.Evaluation{Path: path, Err: err})
		}
		a.logger.Error("%v", err)
		return evaluations
	}

	for _, path := range paths {
		evaluations = append(evaluations, a.evaluate(ctx, path))
	}

	return evaluations
}

func (a *Adapter) evaluate(ctx context.Context, path string) dto.Evaluation {
	evaluation := dto.Evaluation{Path: path}

	if !a.Supported(path) {
		evaluation.Err = fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
		a.logger.Warning("Skipping %s: %v", path, evaluation.Err)
		return evaluation
	}

	annotated := filepath.Join(a.predictedDir, filepath.Base(path))
	detections, err := a.predictor.Predict(ctx, path, annotated)
	if err != nil {
		evaluation.Err = fmt.Errorf("failed to evaluate %s: %w", filepath.Base(path), err)
		a.logger.Error("Detection failed for %s: %v", path, err)
		return evaluation
	}

	evaluation.AnnotatedPath = annotated
	evaluation.Detections = a.filter(detections)
	evaluation.Confidences = Confidences(evaluation.Detections)

	if len(evaluation.Confidences) > 0 {
		a.logger.Info("Detected %d fire regions in %s", len(evaluation.Confidences), path)
	}

	return evaluation
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
