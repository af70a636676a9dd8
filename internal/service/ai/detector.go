package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/yolo"
)

// Devices accepted by the detector.
const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// ErrNotReady is returned when the network failed to load.
var ErrNotReady = errors.New("detection network not initialized")

// DetectorService runs an OpenCV DNN detector. It is safe for concurrent use.
type DetectorService struct {
	mu    sync.Mutex
	net   gocv.Net
	ready bool

	modelPath  string
	configPath string
	device     string
	classes    yolo.Classes
	inputSize  int
	score      float32
	iou        float32
	windowName string

	logger *logger.Logger
}

// NewDetectorService creates a detector and tries to load the network.
// A missing or broken model is logged; Predict then returns ErrNotReady.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ModelConfigPath,
		device:     strings.ToLower(cfg.Device),
		classes:    yolo.Classes(cfg.ClassNames),
		inputSize:  cfg.InputSize,
		score:      float32(cfg.ConfidenceThreshold),
		iou:        float32(cfg.IoUThreshold),
		windowName: cfg.VideoWindowName,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
	}

	return service
}

// initializeNet loads the network by file format and selects the execution device.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); err != nil {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	var net gocv.Net
	switch strings.ToLower(filepath.Ext(s.modelPath)) {
	case ".onnx":
		net = gocv.ReadNetFromONNX(s.modelPath)
	default:
		if s.configPath != "" {
			if _, err := os.Stat(s.configPath); err != nil {
				return fmt.Errorf("config file not found: %s", s.configPath)
			}
		}
		net = gocv.ReadNet(s.modelPath, s.configPath)
	}

	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	device, err := selectDevice(&net, s.device)
	if err != nil {
		net.Close()
		return err
	}
	if device != s.device && s.device != DeviceAuto {
		s.logger.Warning("Device %s unavailable, running detection on %s", s.device, device)
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized on %s from %s", device, s.modelPath)
	return nil
}

// selectDevice prefers CUDA for auto and cuda, falling back to the default backend on CPU.
func selectDevice(net *gocv.Net, requested string) (string, error) {
	if requested != DeviceCPU {
		errBackend := net.SetPreferableBackend(gocv.NetBackendCUDA)
		errTarget := net.SetPreferableTarget(gocv.NetTargetCUDA)
		if errBackend == nil && errTarget == nil {
			return DeviceCUDA, nil
		}
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		return "", fmt.Errorf("failed to set preferable backend or target")
	}
	return DeviceCPU, nil
}

// Ready reports whether the network is loaded.
func (s *DetectorService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Predict runs the detector on the image at path. When annotatedPath is set, a copy with boxes
// drawn is written there, also when nothing was detected.
func (s *DetectorService) Predict(ctx context.Context, path, annotatedPath string) ([]dto.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read image %s", path)
	}

	results, err := s.DetectObjects(mat)
	if err != nil {
		return nil, err
	}

	if annotatedPath != "" {
		if err := DrawRectangles(&mat, results); err != nil {
			return nil, err
		}
		if ok := gocv.IMWrite(annotatedPath, mat); !ok {
			return nil, fmt.Errorf("failed to write annotated image %s", annotatedPath)
		}
	}

	return results, nil
}

// DetectObjects runs the network on a BGR frame and returns the boxes that survive NMS.
func (s *DetectorService) DetectObjects(mat gocv.Mat) ([]dto.DetectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, ErrNotReady
	}

	size := s.inputSize
	if size <= 0 {
		size = yolo.DefaultInputSize
	}
	lb := yolo.NewLetterbox(mat.Cols(), mat.Rows(), size)

	// Pad to a square so one scale factor maps boxes back.
	side := lb.Side()
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), side, side, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, mat.Cols(), mat.Rows()))
	mat.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	shape, err := yolo.ShapeFromDims(output.Size())
	if err != nil {
		return nil, err
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	candidates, err := yolo.Decode(data, shape, s.score, lb)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []dto.DetectionResult{}, nil
	}

	boxes, scores := yolo.Split(candidates)
	indices := gocv.NMSBoxes(boxes, scores, s.score, s.iou)

	results := make([]dto.DetectionResult, 0, len(indices))
	for _, i := range indices {
		c := candidates[i]
		results = append(results, dto.DetectionResult{
			Label:      s.classes.Name(c.ClassID),
			Confidence: float64(c.Confidence),
			X:          c.Box.Min.X,
			Y:          c.Box.Min.Y,
			Width:      c.Box.Dx(),
			Height:     c.Box.Dy(),
		})
	}

	return results, nil
}

// DrawRectangles draws detection boxes and "label (conf)" captions onto mat.
func DrawRectangles(mat *gocv.Mat, detections []dto.DetectionResult) error {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	for _, detection := range detections {
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(mat, rect, red, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, max(detection.Y-5, 12))
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, red, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}

	return nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}
