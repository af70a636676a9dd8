package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
)

// Config returns a configuration rooted in a fresh temporary directory with no batch delay.
func Config(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Port:                8080,
		LogDirectory:        filepath.Join(dir, "logs"),
		ClassNames:          []string{"fire", "smoke"},
		FireClasses:         []string{"fire", "smoke"},
		Device:              "cpu",
		InputSize:           640,
		ConfidenceThreshold: 0.20,
		IoUThreshold:        0.45,
		ImageExtensions:     []string{"jpg", "jpeg", "png"},
		VideoExtensions:     []string{"mp4"},
		PredictedDirectory:  filepath.Join(dir, "predicted"),
		MapPath:             filepath.Join(dir, "map_data", "map.html"),
		CoordinatesPath:     filepath.Join(dir, "map_data", "coords.csv"),
		MarkerPolicy:        config.MarkerPolicyAll,
		BatchSize:           4,
		BatchDelay:          0,
		ResultBufferSize:    10,
		DatabaseDriver:      "sqlite3",
		DatabaseDSN:         filepath.Join(dir, "results.db"),
		OverpassRadius:      10000,
		OverpassTimeout:     time.Second,
		VideoWindowName:     "test",
	}
}

// Logger returns a file-only logger that is closed when the test ends.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewTestLogger(t.TempDir())
	t.Cleanup(func() { l.Close() })
	return l
}
