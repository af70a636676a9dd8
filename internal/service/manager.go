package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/DanilSvechnikar/wildfire-detection/internal/batch"
	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/evaluation"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/mapping"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/results"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/storage"
)

var (
	// ErrRunInProgress is returned when an evaluation is requested while another is running.
	ErrRunInProgress = errors.New("an evaluation is already running")
	// ErrVideoUnavailable is returned when no video evaluator is configured.
	ErrVideoUnavailable = errors.New("video evaluation unavailable")
)

// Locator resolves where an image was taken.
type Locator interface {
	Locate(ctx context.Context, path string) model.Location
}

// Broadcaster pushes run events to viewers.
type Broadcaster interface {
	Broadcast(event dto.Event)
}

// VideoEvaluator runs the interactive video and camera loops.
type VideoEvaluator interface {
	EvaluateVideo(ctx context.Context, source string, onFrame func(int, []dto.DetectionResult)) error
	EvaluateCamera(ctx context.Context, device int, onFrame func(int, []dto.DetectionResult)) error
}

// Dependencies are the components a Manager drives. Runs, Hub and Video may be nil.
type Dependencies struct {
	Adapter    *evaluation.Adapter
	Resolver   Locator
	Aggregator *results.Aggregator
	Map        *mapping.Builder
	Buffer     *storage.BufferService
	Runs       repository.RunRepository
	Hub        Broadcaster
	Video      VideoEvaluator
	Clock      clock.Clock
}

// Manager runs the evaluation pipeline. Only one evaluation runs at a time.
type Manager struct {
	adapter    *evaluation.Adapter
	resolver   Locator
	aggregator *results.Aggregator
	mapBuilder *mapping.Builder
	buffer     *storage.BufferService
	runs       repository.RunRepository
	hub        Broadcaster
	video      VideoEvaluator
	clock      clock.Clock

	batchSize       int
	batchDelay      time.Duration
	markerPolicy    string
	imageExtensions map[string]struct{}
	videoExtensions map[string]struct{}
	cameraDevice    int

	running atomic.Bool
	logger  *logger.Logger
}

func NewManager(deps Dependencies, cfg *config.Config, logger *logger.Logger) *Manager {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	manager := &Manager{
		adapter:         deps.Adapter,
		resolver:        deps.Resolver,
		aggregator:      deps.Aggregator,
		mapBuilder:      deps.Map,
		buffer:          deps.Buffer,
		runs:            deps.Runs,
		hub:             deps.Hub,
		video:           deps.Video,
		clock:           clk,
		batchSize:       cfg.BatchSize,
		batchDelay:      cfg.BatchDelay,
		markerPolicy:    cfg.MarkerPolicy,
		imageExtensions: extensionSet(cfg.ImageExtensions),
		videoExtensions: extensionSet(cfg.VideoExtensions),
		cameraDevice:    cfg.CameraDevice,
		logger:          logger,
	}

	manager.logger.Info("Manager started - batch size %d, marker policy %s", manager.batchSize, manager.markerPolicy)
	return manager
}

// Busy reports whether an evaluation is running.
func (m *Manager) Busy() bool {
	return m.running.Load()
}

// MapPath returns the map document location.
func (m *Manager) MapPath() string {
	return m.mapBuilder.Path()
}

// PredictedDirectory returns where annotated images are written.
func (m *Manager) PredictedDirectory() string {
	return m.adapter.PredictedDirectory()
}

// Rows returns the display rows of the current run.
func (m *Manager) Rows() []dto.ResultRow {
	return m.aggregator.Table()
}

// ListMedia returns the images and videos directly inside dir, sorted by name.
func (m *Manager) ListMedia(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var images, videos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := normalizeExt(filepath.Ext(entry.Name()))
		path := filepath.Join(dir, entry.Name())
		if _, ok := m.imageExtensions[ext]; ok {
			images = append(images, path)
		} else if _, ok := m.videoExtensions[ext]; ok {
			videos = append(videos, path)
		}
	}

	return images, videos, nil
}

// EvaluateImage runs the detector on one image and resolves its location. Nothing is stored.
func (m *Manager) EvaluateImage(ctx context.Context, path string) (dto.Prediction, error) {
	if !m.running.CompareAndSwap(false, true) {
		return dto.Prediction{}, ErrRunInProgress
	}
	defer m.running.Store(false)

	result := m.adapter.Detect(ctx, path)[0]
	if result.Failed() {
		return dto.Prediction{Evaluation: result}, result.Err
	}

	loc := m.resolver.Locate(ctx, path)
	record := model.ImageRecord{
		Name:        filepath.Base(path),
		Path:        path,
		Detections:  result.Confidences,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Place:       loc.Place,
		Source:      loc.Source,
		Probability: results.FireProbability(result.Confidences),
	}

	m.logger.Info("Prediction for %s: %d fire regions", path, len(result.Confidences))
	return dto.Prediction{Evaluation: result, Location: loc, Row: results.Row(record)}, nil
}

// RunDirectory evaluates every image in dir batch by batch. Files that cannot be evaluated are
// reported in the summary and do not stop the run.
func (m *Manager) RunDirectory(ctx context.Context, dir string) (dto.RunSummary, error) {
	if !m.running.CompareAndSwap(false, true) {
		return dto.RunSummary{}, ErrRunInProgress
	}
	defer m.running.Store(false)

	images, _, err := m.ListMedia(dir)
	if err != nil {
		return dto.RunSummary{}, err
	}

	streamer, err := batch.NewStreamer(images, m.batchSize, m.batchDelay, m.clock)
	if err != nil {
		return dto.RunSummary{}, err
	}

	m.aggregator.Reset()
	if err := m.mapBuilder.Reset(); err != nil {
		m.logger.Error("Failed to reset map: %v", err)
	}

	run := model.Run{Directory: dir, StartedAt: m.clock.Now()}
	if m.runs != nil {
		if _, err := m.runs.Create(ctx, &run); err != nil {
			m.logger.Error("Failed to store run: %v", err)
		}
	}

	m.logger.Info("Run %d started: %d images in %s", run.ID, len(images), dir)
	m.broadcast(dto.Event{Type: dto.EventRunStarted, RunID: run.ID, Payload: dto.RunStarted{Directory: dir, Total: len(images)}})

	summary := dto.RunSummary{MapPath: m.mapBuilder.Path(), Skipped: []dto.SkippedFile{}}
	done := 0

	for b, ok := streamer.Next(ctx); ok; b, ok = streamer.Next(ctx) {
		for _, result := range m.adapter.Detect(ctx, b...) {
			done++
			if result.Failed() {
				skipped := dto.SkippedFile{Path: result.Path, Error: result.Err.Error()}
				summary.Skipped = append(summary.Skipped, skipped)
				m.broadcast(dto.Event{Type: dto.EventSkipped, RunID: run.ID, Payload: skipped})
				continue
			}

			record, err := m.record(ctx, run.ID, result)
			if err != nil {
				skipped := dto.SkippedFile{Path: result.Path, Error: err.Error()}
				summary.Skipped = append(summary.Skipped, skipped)
				m.broadcast(dto.Event{Type: dto.EventSkipped, RunID: run.ID, Payload: skipped})
				continue
			}

			run.Processed++
			if record.HasFire() {
				run.WithFire++
			}
			m.broadcast(dto.Event{Type: dto.EventRecord, RunID: run.ID, Payload: results.Row(record)})
		}

		m.broadcast(dto.Event{Type: dto.EventBatch, RunID: run.ID, Payload: dto.BatchProgress{
			Index: streamer.Yielded(),
			Paths: b,
			Done:  done,
			Total: len(images),
		}})
	}

	// Persist what was processed even when the run was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if err := m.buffer.Flush(persistCtx); err != nil {
		dropped := m.buffer.Discard()
		m.logger.Warning("Run %d results kept in memory only, %d records not stored: %v", run.ID, dropped, err)
	}

	finished := m.clock.Now()
	run.FinishedAt = &finished
	run.Skipped = len(summary.Skipped)
	if m.runs != nil && run.ID > 0 {
		if err := m.runs.Finish(persistCtx, &run); err != nil {
			m.logger.Error("Failed to finish run %d: %v", run.ID, err)
		}
	}

	summary.Run = run
	summary.Rows = m.aggregator.Table()

	m.broadcast(dto.Event{Type: dto.EventRunFinished, RunID: run.ID, Payload: summary})
	m.logger.Info("Run %d finished: %d processed, %d with fire, %d skipped", run.ID, run.Processed, run.WithFire, run.Skipped)

	if err := streamer.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}
	return summary, nil
}

// record resolves, aggregates, buffers and maps one successful evaluation.
func (m *Manager) record(ctx context.Context, runID int64, result dto.Evaluation) (model.ImageRecord, error) {
	loc := m.resolver.Locate(ctx, result.Path)

	record, err := m.aggregator.Record(filepath.Base(result.Path), result.Path, result.Confidences, loc)
	if err != nil {
		m.logger.Error("Failed to record %s: %v", result.Path, err)
		return model.ImageRecord{}, err
	}

	// Records of a run that was never stored cannot reference it.
	if runID > 0 {
		m.buffer.AddRecord(ctx, runID, record, result.Detections)
	}

	if loc.Source == model.SourceNone {
		return record, nil
	}
	if m.markerPolicy != config.MarkerPolicyFire || record.HasFire() {
		if err := m.mapBuilder.Add(model.MarkerFor(record)); err != nil {
			m.logger.Error("Failed to update map for %s: %v", result.Path, err)
		}
	}

	return record, nil
}

// EvaluateVideo runs the interactive loop over a video file and summarises fire frames.
func (m *Manager) EvaluateVideo(ctx context.Context, source string) (dto.VideoSummary, error) {
	if _, ok := m.videoExtensions[normalizeExt(filepath.Ext(source))]; !ok {
		return dto.VideoSummary{}, fmt.Errorf("%w: %s", evaluation.ErrUnsupportedFile, filepath.Base(source))
	}
	return m.evaluateStream(ctx, source, func(onFrame func(int, []dto.DetectionResult)) error {
		return m.video.EvaluateVideo(ctx, source, onFrame)
	})
}

// EvaluateCamera runs the interactive loop on the configured capture device.
func (m *Manager) EvaluateCamera(ctx context.Context) (dto.VideoSummary, error) {
	source := fmt.Sprintf("camera %d", m.cameraDevice)
	return m.evaluateStream(ctx, source, func(onFrame func(int, []dto.DetectionResult)) error {
		return m.video.EvaluateCamera(ctx, m.cameraDevice, onFrame)
	})
}

func (m *Manager) evaluateStream(ctx context.Context, source string, run func(func(int, []dto.DetectionResult)) error) (dto.VideoSummary, error) {
	if m.video == nil {
		return dto.VideoSummary{}, ErrVideoUnavailable
	}
	if !m.running.CompareAndSwap(false, true) {
		return dto.VideoSummary{}, ErrRunInProgress
	}
	defer m.running.Store(false)

	summary := dto.VideoSummary{Source: source}
	err := run(func(frame int, detections []dto.DetectionResult) {
		summary.Frames = frame
		confidences := evaluation.Confidences(m.adapter.Filter(detections))
		if len(confidences) == 0 {
			return
		}
		summary.FramesWithFire++
		p := results.FireProbability(confidences)
		if p > summary.MaxProbability {
			summary.MaxProbability = p
		}
		m.logger.Info("Fire in %s frame %d, probability %.2f", source, frame, p)
	})

	summary.MaxProbability = results.Round(summary.MaxProbability, 2)
	if err != nil {
		return summary, fmt.Errorf("video evaluation failed: %w", err)
	}
	return summary, nil
}

func (m *Manager) broadcast(event dto.Event) {
	if m.hub != nil {
		m.hub.Broadcast(event)
	}
}

func extensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[normalizeExt(ext)] = struct{}{}
	}
	return set
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
