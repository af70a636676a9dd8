package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/handler"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/middleware"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/websocket"
)

// Dependencies are what the handlers need. Runs and Records are nil when results are not stored.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Controller *command.Controller
	Hub        *websocket.HubService
	Runs       repository.RunRepository
	Records    repository.RecordRepository
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the API, the viewer websocket, map and image serving, log endpoints
// and static pages, wrapped with request logging and panic recovery.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	cfg, log, controller := deps.Config, deps.Logger, deps.Controller

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Commands
	mux.HandleFunc("GET /api/state", handler.StateHandler(controller, log))
	mux.HandleFunc("POST /api/gallery", handler.GalleryHandler(controller, log))
	mux.HandleFunc("POST /api/select", handler.SelectHandler(controller, log))
	mux.HandleFunc("POST /api/predict", handler.PredictHandler(controller, log))
	mux.HandleFunc("POST /api/evaluate", handler.EvaluateHandler(controller, log))
	mux.HandleFunc("POST /api/video", handler.VideoHandler(controller, log))

	// Results
	mux.HandleFunc("GET /api/results", handler.ResultsHandler(controller, deps.Runs, deps.Records, log))
	mux.HandleFunc("GET /api/runs", handler.RunsHandler(deps.Runs, log))
	mux.HandleFunc("GET /api/runs/{id}/markers", handler.RunMarkersHandler(deps.Runs, deps.Records, log))
	mux.HandleFunc("GET /api/records/{id}/detections", handler.DetectionsHandler(deps.Records, log))
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(deps.Hub, log))

	// Artifacts
	mux.HandleFunc("GET /map", handler.MapHandler(controller))
	mux.HandleFunc("GET /predicted/{name}", handler.PredictedImageHandler(cfg))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(log))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(log))

	// Automatic HTML handler mapping for example: /results -> <static>/results.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	return middleware.Recover(log)(middleware.Logging(log)(mux))
}
