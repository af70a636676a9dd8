package ai

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// EvaluateVideo plays a video file in a window with detections drawn on every frame.
// onFrame, if set, receives each frame's detections.
func (s *DetectorService) EvaluateVideo(ctx context.Context, source string, onFrame func(int, []dto.DetectionResult)) error {
	capture, err := gocv.VideoCaptureFile(source)
	if err != nil {
		return fmt.Errorf("failed to open video %s: %w", source, err)
	}
	defer capture.Close()

	return s.runLoop(ctx, capture, source, onFrame)
}

// EvaluateCamera runs the same loop on a live capture device.
func (s *DetectorService) EvaluateCamera(ctx context.Context, device int, onFrame func(int, []dto.DetectionResult)) error {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	defer capture.Close()

	return s.runLoop(ctx, capture, fmt.Sprintf("camera %d", device), onFrame)
}

// runLoop stops at end of stream, on q or Esc, when the window is closed, or when ctx is done.
func (s *DetectorService) runLoop(ctx context.Context, capture *gocv.VideoCapture, source string, onFrame func(int, []dto.DetectionResult)) error {
	if !s.Ready() {
		return ErrNotReady
	}

	window := gocv.NewWindow(s.windowName)
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	s.logger.Info("Video evaluation started: %s", source)

	frames := 0
	for capture.IsOpened() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		frames++

		detections, err := s.DetectObjects(frame)
		if err != nil {
			return fmt.Errorf("detection failed on frame %d: %w", frames, err)
		}
		if onFrame != nil {
			onFrame(frames, detections)
		}

		if err := DrawRectangles(&frame, detections); err != nil {
			s.logger.Warning("Failed to annotate frame %d: %v", frames, err)
		}
		window.IMShow(frame)

		if key := window.WaitKey(1) & 0xFF; key == keyQ || key == keyEsc {
			break
		}
		if !window.IsOpen() {
			break
		}
	}

	s.logger.Info("Video evaluation finished: %s, %d frames", source, frames)
	return nil
}
