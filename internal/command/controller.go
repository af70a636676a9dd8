// Package command holds the explicit UI state and the commands that change it.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
)

var (
	// ErrNoDirectory is returned by commands that need a gallery before one is selected.
	ErrNoDirectory = errors.New("no directory selected")
	// ErrNoSelection is returned by RunPrediction before a file is selected.
	ErrNoSelection = errors.New("no file selected")
	// ErrNotInGallery is returned when selecting a file outside the current gallery.
	ErrNotInGallery = errors.New("file is not in the current gallery")
)

// Runner is the pipeline the commands drive.
type Runner interface {
	ListMedia(dir string) ([]string, []string, error)
	EvaluateImage(ctx context.Context, path string) (dto.Prediction, error)
	RunDirectory(ctx context.Context, dir string) (dto.RunSummary, error)
	EvaluateVideo(ctx context.Context, source string) (dto.VideoSummary, error)
	EvaluateCamera(ctx context.Context) (dto.VideoSummary, error)
	MapPath() string
}

// State is what the presentation renders.
type State struct {
	Directory     string            `json:"directory"`
	Files         []string          `json:"files"`
	Videos        []string          `json:"videos"`
	Selected      string            `json:"selected"`
	Busy          bool              `json:"busy"`
	Status        string            `json:"status"`
	Rows          []dto.ResultRow   `json:"rows"`
	Skipped       []dto.SkippedFile `json:"skipped"`
	MapPath       string            `json:"map_path"`
	LastAnnotated string            `json:"last_annotated,omitempty"`
	Prediction    *dto.Prediction   `json:"prediction,omitempty"`
	Video         *dto.VideoSummary `json:"video,omitempty"`
	RunID         int64             `json:"run_id,omitempty"`
}

func (s State) clone() State {
	s.Files = append([]string{}, s.Files...)
	s.Videos = append([]string{}, s.Videos...)
	s.Rows = append([]dto.ResultRow{}, s.Rows...)
	s.Skipped = append([]dto.SkippedFile{}, s.Skipped...)
	if s.Prediction != nil {
		p := *s.Prediction
		s.Prediction = &p
	}
	if s.Video != nil {
		v := *s.Video
		s.Video = &v
	}
	return s
}

// Command is one user action.
type Command interface {
	execute(ctx context.Context, c *Controller) error
}

// SelectDirectory opens a gallery. A file path opens its directory and selects the file.
type SelectDirectory struct {
	Path string
}

// SelectFile selects one image of the current gallery.
type SelectFile struct {
	Path string
}

// RunPrediction evaluates the selected image.
type RunPrediction struct{}

// RunBatch evaluates the whole gallery.
type RunBatch struct{}

// RunVideo plays a video file, or the camera when Camera is set, with live detection.
type RunVideo struct {
	Path   string
	Camera bool
}

// Controller executes commands one at a time and keeps the resulting State.
type Controller struct {
	runner Runner
	logger *logger.Logger

	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State
}

func NewController(runner Runner, logger *logger.Logger) *Controller {
	return &Controller{
		runner: runner,
		logger: logger,
		state: State{
			Files:   []string{},
			Videos:  []string{},
			Rows:    []dto.ResultRow{},
			Skipped: []dto.SkippedFile{},
			Status:  "Open a gallery to start",
			MapPath: runner.MapPath(),
		},
	}
}

// State returns a snapshot. It does not wait for a running command.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Dispatch runs cmd and returns the state after it. The state is returned even when cmd fails;
// the error is also reflected in Status.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (State, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	err := cmd.execute(ctx, c)
	if err != nil {
		c.logger.Warning("Command %T failed: %v", cmd, err)
		c.update(func(s *State) {
			s.Busy = false
			s.Status = fmt.Sprintf("Error: %v", err)
		})
	}
	return c.State(), err
}

func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

func (cmd SelectDirectory) execute(_ context.Context, c *Controller) error {
	dir, selected := cmd.Path, ""
	info, err := os.Stat(cmd.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.Path, err)
	}
	if !info.IsDir() {
		dir, selected = filepath.Dir(cmd.Path), cmd.Path
	}

	images, videos, err := c.runner.ListMedia(dir)
	if err != nil {
		return err
	}

	c.update(func(s *State) {
		s.Directory = dir
		s.Files = append([]string{}, images...)
		s.Videos = append([]string{}, videos...)
		s.Selected = ""
		if selected != "" && slices.Contains(images, selected) {
			s.Selected = selected
		}
		s.Status = fmt.Sprintf("%d images, %d videos", len(images), len(videos))
	})
	return nil
}

func (cmd SelectFile) execute(_ context.Context, c *Controller) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Directory == "" {
		return ErrNoDirectory
	}
	path := cmd.Path
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(c.state.Directory, path)
	}
	if !slices.Contains(c.state.Files, path) {
		return fmt.Errorf("%w: %s", ErrNotInGallery, cmd.Path)
	}

	c.state.Selected = path
	c.state.Status = "Selected " + filepath.Base(path)
	return nil
}

func (RunPrediction) execute(ctx context.Context, c *Controller) error {
	selected := c.State().Selected
	if selected == "" {
		return ErrNoSelection
	}

	c.update(func(s *State) {
		s.Busy = true
		s.Status = "Evaluating model..."
	})

	prediction, err := c.runner.EvaluateImage(ctx, selected)
	if err != nil {
		return err
	}

	c.update(func(s *State) {
		s.Busy = false
		s.Prediction = &prediction
		s.LastAnnotated = prediction.Evaluation.AnnotatedPath
		s.Status = fmt.Sprintf("%s: %s", prediction.Row.Name, prediction.Row.Label)
	})
	return nil
}

func (RunBatch) execute(ctx context.Context, c *Controller) error {
	dir := c.State().Directory
	if dir == "" {
		return ErrNoDirectory
	}

	c.update(func(s *State) {
		s.Busy = true
		s.Status = "Evaluating " + dir
	})

	summary, err := c.runner.RunDirectory(ctx, dir)
	if err != nil && summary.Run.StartedAt.IsZero() {
		return err
	}

	c.update(func(s *State) {
		s.Busy = false
		s.RunID = summary.Run.ID
		s.Rows = append([]dto.ResultRow{}, summary.Rows...)
		s.Skipped = append([]dto.SkippedFile{}, summary.Skipped...)
		if summary.MapPath != "" {
			s.MapPath = summary.MapPath
		}
		s.Status = fmt.Sprintf("%d processed, %d with fire, %d skipped",
			summary.Run.Processed, summary.Run.WithFire, len(summary.Skipped))
	})
	return err
}

func (cmd RunVideo) execute(ctx context.Context, c *Controller) error {
	c.update(func(s *State) {
		s.Busy = true
		s.Status = "Playing video, press q to stop"
	})

	var (
		summary dto.VideoSummary
		err     error
	)
	if cmd.Camera {
		summary, err = c.runner.EvaluateCamera(ctx)
	} else {
		summary, err = c.runner.EvaluateVideo(ctx, cmd.Path)
	}
	if err != nil {
		return err
	}

	c.update(func(s *State) {
		s.Busy = false
		s.Video = &summary
		s.Status = fmt.Sprintf("%d of %d frames with fire", summary.FramesWithFire, summary.Frames)
	})
	return nil
}
