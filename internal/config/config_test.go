package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	if cfg.BatchSize != 4 {
		t.Errorf("expected batch size 4, got %d", cfg.BatchSize)
	}
	if cfg.BatchDelay != 50*time.Millisecond {
		t.Errorf("expected batch delay 50ms, got %v", cfg.BatchDelay)
	}
	if cfg.ConfidenceThreshold != 0.20 {
		t.Errorf("expected confidence threshold 0.20, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MarkerPolicy != MarkerPolicyAll {
		t.Errorf("expected marker policy %q, got %q", MarkerPolicyAll, cfg.MarkerPolicy)
	}
	if diff := cmp.Diff([]string{"jpg", "jpeg", "png"}, cfg.ImageExtensions); diff != "" {
		t.Errorf("image extensions mismatch (-want +got):\n%s", diff)
	}
	if cfg.PredictedDirectory != filepath.Join("data", "predicted") {
		t.Errorf("unexpected predicted directory %s", cfg.PredictedDirectory)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("BATCH_SIZE", "8")
	t.Setenv("BATCH_DELAY", "0.25")
	t.Setenv("FIRE_CLASSES", " fire , ,smoke")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	if cfg.BatchSize != 8 {
		t.Errorf("expected batch size 8, got %d", cfg.BatchSize)
	}
	if cfg.BatchDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms from seconds value, got %v", cfg.BatchDelay)
	}
	if diff := cmp.Diff([]string{"fire", "smoke"}, cfg.FireClasses); diff != "" {
		t.Errorf("fire classes mismatch (-want +got):\n%s", diff)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.Port != 8080 {
		t.Errorf("invalid PORT should fall back to default, got %d", cfg.Port)
	}
}

func TestLoad_EmptyListDisablesFilter(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("FIRE_CLASSES", "")

	cfg := Load()

	if len(cfg.FireClasses) != 0 {
		t.Errorf("expected no fire classes, got %v", cfg.FireClasses)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("MARKER_POLICY=fire\nDATA_DIR=/srv/wildfire\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	// godotenv does not override variables that are already set; make sure they are not.
	os.Unsetenv("MARKER_POLICY")
	os.Unsetenv("DATA_DIR")
	t.Cleanup(func() {
		os.Unsetenv("MARKER_POLICY")
		os.Unsetenv("DATA_DIR")
	})

	cfg := Load()

	if cfg.MarkerPolicy != MarkerPolicyFire {
		t.Errorf("expected marker policy from env file, got %q", cfg.MarkerPolicy)
	}
	if cfg.MapPath != filepath.Join("/srv/wildfire", "map_data", "map.html") {
		t.Errorf("expected map path under DATA_DIR, got %s", cfg.MapPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "fire policy", mutate: func(c *Config) { c.MarkerPolicy = MarkerPolicyFire }},
		{name: "unknown policy", mutate: func(c *Config) { c.MarkerPolicy = "fires" }, wantErr: true},
		{name: "empty policy", mutate: func(c *Config) { c.MarkerPolicy = "" }, wantErr: true},
		{name: "zero input size", mutate: func(c *Config) { c.InputSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
