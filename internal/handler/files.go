package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
)

// MapHandler serves the map document of the current run.
func MapHandler(controller *command.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := controller.State().MapPath
		if _, err := os.Stat(path); err != nil {
			http.Error(w, "Map not generated yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}

// PredictedImageHandler serves an annotated image by file name.
func PredictedImageHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.PathValue("name"))
		if name == "." || name == string(filepath.Separator) {
			http.Error(w, "Image name is required", http.StatusBadRequest)
			return
		}

		path := filepath.Join(cfg.PredictedDirectory, name)
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}
}
