package handler

import (
	"net/http"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
)

// StateHandler returns the current UI state without waiting for a running command.
func StateHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, controller.State())
	}
}

// GalleryHandler opens the directory, or the directory of the file, named in the body.
func GalleryHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCommand(r)
		if err != nil || req.Path == "" {
			http.Error(w, "Path required", http.StatusBadRequest)
			return
		}
		dispatch(w, r, controller, logger, command.SelectDirectory{Path: req.Path})
	}
}

// SelectHandler selects one image of the current gallery.
func SelectHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCommand(r)
		if err != nil || req.Path == "" {
			http.Error(w, "Path required", http.StatusBadRequest)
			return
		}
		dispatch(w, r, controller, logger, command.SelectFile{Path: req.Path})
	}
}

// PredictHandler evaluates one image: the one named in the body, or the current selection.
func PredictHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCommand(r)
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Path != "" {
			if _, err := controller.Dispatch(r.Context(), command.SelectFile{Path: req.Path}); err != nil {
				writeError(w, logger, err)
				return
			}
		}
		dispatch(w, r, controller, logger, command.RunPrediction{})
	}
}

// EvaluateHandler runs the batch pipeline over the current gallery. Progress is pushed to
// viewers while the request is open.
func EvaluateHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatch(w, r, controller, logger, command.RunBatch{})
	}
}

// VideoHandler plays a video file or the camera in the detection window.
func VideoHandler(controller *command.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeCommand(r)
		if err != nil || (req.Path == "" && !req.Camera) {
			http.Error(w, "Path or camera required", http.StatusBadRequest)
			return
		}
		dispatch(w, r, controller, logger, command.RunVideo{Path: req.Path, Camera: req.Camera})
	}
}

func dispatch(w http.ResponseWriter, r *http.Request, controller *command.Controller, logger *logger.Logger, cmd command.Command) {
	state, err := controller.Dispatch(r.Context(), cmd)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, state)
}
