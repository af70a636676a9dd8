package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Marker policies decide which processed images get a map marker.
const (
	MarkerPolicyAll  = "all"
	MarkerPolicyFire = "fire"
)

type Config struct {
	Port            int
	LogDirectory    string
	StaticDirectory string

	// Detector
	ModelPath           string
	ModelConfigPath     string
	ClassNames          []string
	FireClasses         []string
	Device              string // auto, cuda or cpu
	InputSize           int
	ConfidenceThreshold float64
	IoUThreshold        float64

	// Media and outputs
	ImageExtensions    []string
	VideoExtensions    []string
	PredictedDirectory string
	MapPath            string
	CoordinatesPath    string
	MarkerPolicy       string

	// Batch processing
	BatchSize        int
	BatchDelay       time.Duration
	ResultBufferSize int

	// Storage
	DatabaseDriver string
	DatabaseDSN    string

	// Place lookup, disabled when OverpassURL is empty
	OverpassURL     string
	OverpassRadius  int
	OverpassTimeout time.Duration

	// Video
	VideoWindowName string
	CameraDevice    int
}

// Load reads an optional .env file and then builds the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory: getEnv("STATIC_DIR", filepath.Join(".", "static")),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "runs", "detect", "train", "weights", "best.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		ClassNames:          getEnvAsList("CLASS_NAMES", []string{"fire", "smoke"}),
		FireClasses:         getEnvAsList("FIRE_CLASSES", []string{"fire", "smoke"}),
		Device:              getEnv("DEVICE", "auto"),
		InputSize:           getEnvAsInt("INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.20),
		IoUThreshold:        getEnvAsFloat("IOU_THRESHOLD", 0.45),

		ImageExtensions:    getEnvAsList("IMAGE_EXTENSIONS", []string{"jpg", "jpeg", "png"}),
		VideoExtensions:    getEnvAsList("VIDEO_EXTENSIONS", []string{"mp4"}),
		PredictedDirectory: getEnv("PREDICTED_DIR", filepath.Join(dataDir, "predicted")),
		MapPath:            getEnv("MAP_PATH", filepath.Join(dataDir, "map_data", "map.html")),
		CoordinatesPath:    getEnv("COORDS_PATH", filepath.Join(dataDir, "map_data", "coords.csv")),
		MarkerPolicy:       getEnv("MARKER_POLICY", MarkerPolicyAll),

		BatchSize:        getEnvAsInt("BATCH_SIZE", 4),
		BatchDelay:       getEnvAsDuration("BATCH_DELAY", 50*time.Millisecond),
		ResultBufferSize: getEnvAsInt("RESULT_BUFFER_SIZE", 10),

		DatabaseDriver: getEnv("DB_DRIVER", "sqlite3"),
		DatabaseDSN:    getEnv("DB_DSN", filepath.Join(dataDir, "results.db")),

		OverpassURL:     getEnv("OVERPASS_URL", ""),
		OverpassRadius:  getEnvAsInt("OVERPASS_RADIUS", 10000),
		OverpassTimeout: getEnvAsDuration("OVERPASS_TIMEOUT", 10*time.Second),

		VideoWindowName: getEnv("VIDEO_WINDOW", "Forest Fire Detection"),
		CameraDevice:    getEnvAsInt("CAMERA_DEVICE", 0),
	}
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate rejects settings that would otherwise be silently reinterpreted.
func (c *Config) Validate() error {
	switch c.MarkerPolicy {
	case MarkerPolicyAll, MarkerPolicyFire:
	default:
		return fmt.Errorf("%w: marker policy %q, expected %q or %q", ErrInvalid, c.MarkerPolicy, MarkerPolicyAll, MarkerPolicyFire)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("%w: input size %d must be positive", ErrInvalid, c.InputSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("50ms") or plain seconds ("0.05").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
