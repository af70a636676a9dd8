// Command firewatch runs wildfire detection from the terminal.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagBatchSize    = "batch-size"
	flagBatchDelay   = "delay"
	flagMarkerPolicy = "marker-policy"
	flagModel        = "model"
	flagDevice       = "device"
	flagConfidence   = "confidence"
	flagDBDriver     = "db-driver"
	flagDBDSN        = "db-dsn"
	flagOverpass     = "overpass-url"
	flagCameraDevice = "device-index"
	flagLimit        = "limit"
)

func main() {
	app := &cli.App{
		Name:  "firewatch",
		Usage: "detect forest fires in images and video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Usage: "detector model file (overrides MODEL_PATH)"},
			&cli.StringFlag{Name: flagDevice, Usage: "auto, cuda or cpu (overrides DEVICE)"},
			&cli.Float64Flag{Name: flagConfidence, Usage: "minimum detection confidence (overrides CONFIDENCE_THRESHOLD)"},
			&cli.StringFlag{Name: flagDBDriver, Usage: "sqlite3 or postgres (overrides DB_DRIVER)"},
			&cli.StringFlag{Name: flagDBDSN, Usage: "database file or connection string (overrides DB_DSN)"},
			&cli.StringFlag{Name: flagOverpass, Usage: "Overpass API endpoint for place names (overrides OVERPASS_URL)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "evaluate",
				Usage:     "evaluate every image in a directory and build the fire map",
				ArgsUsage: "DIR",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagBatchSize, Usage: "images per batch (overrides BATCH_SIZE)"},
					&cli.DurationFlag{Name: flagBatchDelay, Usage: "pause between batches (overrides BATCH_DELAY)"},
					&cli.StringFlag{Name: flagMarkerPolicy, Usage: "all or fire (overrides MARKER_POLICY)"},
				},
				Action: EvaluateAction,
			},
			{
				Name:      "predict",
				Usage:     "evaluate a single image and write the annotated copy",
				ArgsUsage: "FILE",
				Action:    PredictAction,
			},
			{
				Name:      "video",
				Usage:     "play a video with live detection, press q to stop",
				ArgsUsage: "FILE",
				Action:    VideoAction,
			},
			{
				Name:  "camera",
				Usage: "run live detection on a capture device, press q to stop",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagCameraDevice, Usage: "capture device index (overrides CAMERA_DEVICE)"},
				},
				Action: CameraAction,
			},
			{
				Name:      "coords",
				Usage:     "print the coordinates an image resolves to",
				ArgsUsage: "FILE",
				Action:    CoordsAction,
			},
			{
				Name:  "runs",
				Usage: "list stored evaluation runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagLimit, Value: 20, Usage: "number of runs"},
				},
				Action: RunsAction,
			},
			{
				Name:   "migrate",
				Usage:  "create the results schema in the configured database",
				Action: MigrateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("firewatch: %v", err)
	}
}
