package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/DanilSvechnikar/wildfire-detection/internal/app"
	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/location"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/report"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository/overpass"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository/sqldb"
)

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()

	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagDevice) {
		cfg.Device = c.String(flagDevice)
	}
	if c.IsSet(flagConfidence) {
		cfg.ConfidenceThreshold = c.Float64(flagConfidence)
	}
	if c.IsSet(flagDBDriver) {
		cfg.DatabaseDriver = c.String(flagDBDriver)
	}
	if c.IsSet(flagDBDSN) {
		cfg.DatabaseDSN = c.String(flagDBDSN)
	}
	if c.IsSet(flagOverpass) {
		cfg.OverpassURL = c.String(flagOverpass)
	}
	if c.IsSet(flagBatchSize) {
		cfg.BatchSize = c.Int(flagBatchSize)
	}
	if c.IsSet(flagBatchDelay) {
		cfg.BatchDelay = c.Duration(flagBatchDelay)
	}
	if c.IsSet(flagMarkerPolicy) {
		cfg.MarkerPolicy = c.String(flagMarkerPolicy)
	}
	if c.IsSet(flagCameraDevice) {
		cfg.CameraDevice = c.Int(flagCameraDevice)
	}

	return cfg
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.NewApp(loadConfig(c))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(c)
	defer stop()
	return fn(ctx, a)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument", name)
	}
	return c.Args().First(), nil
}

// EvaluateAction runs the batch pipeline over a directory.
func EvaluateAction(c *cli.Context) error {
	dir, err := requireArg(c, "DIR")
	if err != nil {
		return err
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		summary, err := a.Manager().RunDirectory(ctx, dir)
		if summary.Run.StartedAt.IsZero() {
			return err
		}

		fmt.Fprintln(c.App.Writer, report.Results(summary.Rows))
		if skipped := report.Skipped(summary.Skipped); skipped != "" {
			fmt.Fprintln(c.App.Writer, skipped)
		}
		fmt.Fprintf(c.App.Writer, "Map: %s\n", summary.MapPath)

		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.App.Writer, "Interrupted, partial results shown")
			return nil
		}
		return err
	})
}

// PredictAction evaluates one image.
func PredictAction(c *cli.Context) error {
	path, err := requireArg(c, "FILE")
	if err != nil {
		return err
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		prediction, err := a.Manager().EvaluateImage(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, report.Results([]dto.ResultRow{prediction.Row}))
		fmt.Fprintf(c.App.Writer, "Annotated: %s\n", prediction.Evaluation.AnnotatedPath)
		return nil
	})
}

// VideoAction plays a video file with live detection.
func VideoAction(c *cli.Context) error {
	path, err := requireArg(c, "FILE")
	if err != nil {
		return err
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		summary, err := a.Manager().EvaluateVideo(ctx, path)
		fmt.Fprintln(c.App.Writer, report.Video(summary))
		return err
	})
}

// CameraAction runs live detection on a capture device.
func CameraAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		summary, err := a.Manager().EvaluateCamera(ctx)
		fmt.Fprintln(c.App.Writer, report.Video(summary))
		return err
	})
}

// CoordsAction resolves one image location without loading the detector.
func CoordsAction(c *cli.Context) error {
	path, err := requireArg(c, "FILE")
	if err != nil {
		return err
	}

	cfg := loadConfig(c)
	log := logger.NewLogger(cfg)
	defer log.Close()

	table := location.NewSyntheticTable(cfg.CoordinatesPath)
	var places location.PlaceFinder = table
	if cfg.OverpassURL != "" {
		places = overpass.NewPlaceRepository(cfg.OverpassURL, cfg.OverpassRadius, cfg.OverpassTimeout)
	}

	ctx, stop := signalContext(c)
	defer stop()

	loc := location.NewResolver(table, places, nil, log).Locate(ctx, path)
	fmt.Fprintln(c.App.Writer, report.Location(path, loc))
	return nil
}

// RunsAction lists stored runs.
func RunsAction(c *cli.Context) error {
	cfg := loadConfig(c)
	db, err := sqldb.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := sqldb.NewRunRepository(db).List(c.Context, c.Int(flagLimit))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, report.Runs(runs))
	return nil
}

// MigrateAction opens the configured database, which applies the schema.
func MigrateAction(c *cli.Context) error {
	cfg := loadConfig(c)
	db, err := sqldb.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(c.App.Writer, "Schema ready in %s database %s\n", db.Driver(), cfg.DatabaseDSN)
	return nil
}
