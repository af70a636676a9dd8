package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/location"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository/overpass"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository/sqldb"
	"github.com/DanilSvechnikar/wildfire-detection/internal/route"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/ai"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/evaluation"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/mapping"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/results"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/storage"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqldb.DB
	detector   *ai.DetectorService
	buffer     *storage.BufferService
	hub        *websocket.HubService
	manager    *service.Manager
	controller *command.Controller
	runRepo    repository.RunRepository
	recordRepo repository.RecordRepository
}

// NewApp wires every component from cfg. A database that cannot be opened disables persistence
// instead of failing.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg)

	a := &App{config: cfg, logger: log}

	db, err := sqldb.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error("Database unavailable, results will not be stored: %v", err)
	} else {
		a.db = db
		a.runRepo = sqldb.NewRunRepository(db)
		a.recordRepo = sqldb.NewRecordRepository(db)
	}

	a.detector = ai.NewDetectorService(cfg, log)

	mapBuilder, err := mapping.NewBuilder(cfg.MapPath, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create map: %w", err)
	}

	table := location.NewSyntheticTable(cfg.CoordinatesPath)
	var places location.PlaceFinder = table
	if cfg.OverpassURL != "" {
		places = overpass.NewPlaceRepository(cfg.OverpassURL, cfg.OverpassRadius, cfg.OverpassTimeout)
		log.Info("Place names from Overpass at %s", cfg.OverpassURL)
	}

	a.buffer = storage.NewBufferService(cfg, log, a.recordRepo)
	a.hub = websocket.NewHubService(log)

	deps := service.Dependencies{
		Adapter:    evaluation.NewAdapter(a.detector, cfg, log),
		Resolver:   location.NewResolver(table, places, nil, log),
		Aggregator: results.NewAggregator(nil),
		Map:        mapBuilder,
		Buffer:     a.buffer,
		Hub:        a.hub,
		Runs:       a.runRepo,
		Video:      a.detector,
	}

	a.manager = service.NewManager(deps, cfg, log)
	a.controller = command.NewController(a.manager, log)

	return a, nil
}

// Controller returns the command dispatcher.
func (a *App) Controller() *command.Controller {
	return a.controller
}

// Manager returns the evaluation pipeline.
func (a *App) Manager() *service.Manager {
	return a.manager
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Handler builds the HTTP handler of the server.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(route.Dependencies{
		Config:     a.config,
		Logger:     a.logger,
		Controller: a.controller,
		Hub:        a.hub,
		Runs:       a.runRepo,
		Records:    a.recordRepo,
	})
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("Forest Fire Detection server on http://localhost:%d", a.config.Port)
	a.logger.Info("Model: %s, map: %s, database: %s", a.config.ModelPath, a.config.MapPath, a.config.DatabaseDriver)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close flushes buffered results and releases the detector and the database.
func (a *App) Close() error {
	var errs []error
	if a.buffer != nil {
		if err := a.buffer.Flush(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
