package config

import (
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/constants"
)

// clearEnv blanks every variable Load reads so host settings don't leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "MODEL_DIR", "CLASSIFIER", "DETECTOR", "DETECTOR_CASCADE",
		"TRAINING_QUOTA", "TRAINING_SEED", "RECOGNITION_THRESHOLD", "VERIFY_THRESHOLD",
		"SELFTEST_THRESHOLD", "LBPH_RADIUS", "LBPH_NEIGHBORS", "LBPH_GRID_X", "LBPH_GRID_Y",
		"LBPH_THRESHOLD", "WEB_HOST", "WEB_PORT", "WEB_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults_MatchConstants(t *testing.T) {
	cfg := Defaults()

	if cfg.Training.Quota != constants.DefaultTrainingQuota {
		t.Errorf("expected quota %d, got %d", constants.DefaultTrainingQuota, cfg.Training.Quota)
	}
	if cfg.Thresholds.Recognition != constants.DefaultRecognitionThreshold {
		t.Errorf("expected recognition threshold %v, got %v", constants.DefaultRecognitionThreshold, cfg.Thresholds.Recognition)
	}
	if cfg.Thresholds.Verify != constants.DefaultVerifyThreshold {
		t.Errorf("expected verify threshold %v, got %v", constants.DefaultVerifyThreshold, cfg.Thresholds.Verify)
	}
	if cfg.Thresholds.SelfTest != constants.DefaultSelfTestThreshold {
		t.Errorf("expected self-test threshold %v, got %v", constants.DefaultSelfTestThreshold, cfg.Thresholds.SelfTest)
	}
	if cfg.Detector.ScaleFactor != constants.DetectScaleFactor {
		t.Errorf("expected scale factor %v, got %v", constants.DetectScaleFactor, cfg.Detector.ScaleFactor)
	}
	if cfg.Detector.MinNeighbors != constants.DetectMinNeighbors {
		t.Errorf("expected min neighbors %d, got %d", constants.DetectMinNeighbors, cfg.Detector.MinNeighbors)
	}
	if cfg.Detector.MinSize != constants.DetectMinSize {
		t.Errorf("expected min size %d, got %d", constants.DetectMinSize, cfg.Detector.MinSize)
	}

	lbph := cfg.LBPH
	if lbph.Radius != constants.DefaultLBPHRadius || lbph.Neighbors != constants.DefaultLBPHNeighbors {
		t.Errorf("unexpected LBPH radius/neighbors: %d/%d", lbph.Radius, lbph.Neighbors)
	}
	if lbph.GridX != constants.DefaultLBPHGridX || lbph.GridY != constants.DefaultLBPHGridY {
		t.Errorf("unexpected LBPH grid: %dx%d", lbph.GridX, lbph.GridY)
	}
	if lbph.Threshold != constants.DefaultLBPHThreshold {
		t.Errorf("expected LBPH threshold %v, got %v", constants.DefaultLBPHThreshold, lbph.Threshold)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.DataDir != "dataset" {
		t.Errorf("expected data dir 'dataset', got '%s'", cfg.DataDir)
	}
	if cfg.ModelDir != "model" {
		t.Errorf("expected model dir 'model', got '%s'", cfg.ModelDir)
	}
	if cfg.Classifier != "lbph" {
		t.Errorf("expected classifier 'lbph', got '%s'", cfg.Classifier)
	}
	if cfg.Detector.Backend != "pigo" {
		t.Errorf("expected detector 'pigo', got '%s'", cfg.Detector.Backend)
	}
	if cfg.Web.Port != 5000 {
		t.Errorf("expected port 5000, got %d", cfg.Web.Port)
	}
	if cfg.Training.Seed != 0 {
		t.Errorf("expected seed 0, got %d", cfg.Training.Seed)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/srv/faces")
	t.Setenv("MODEL_DIR", "/srv/model")
	t.Setenv("DETECTOR", "opencv")
	t.Setenv("DETECTOR_CASCADE", "/usr/share/haarcascade.xml")
	t.Setenv("TRAINING_QUOTA", "20")
	t.Setenv("TRAINING_SEED", "42")
	t.Setenv("RECOGNITION_THRESHOLD", "55.5")
	t.Setenv("LBPH_GRID_X", "8")
	t.Setenv("WEB_HOST", "127.0.0.1")

	cfg := Load()

	if cfg.DataDir != "/srv/faces" {
		t.Errorf("expected data dir override, got '%s'", cfg.DataDir)
	}
	if cfg.ModelDir != "/srv/model" {
		t.Errorf("expected model dir override, got '%s'", cfg.ModelDir)
	}
	if cfg.Detector.Backend != "opencv" {
		t.Errorf("expected detector override, got '%s'", cfg.Detector.Backend)
	}
	if cfg.Detector.Cascade != "/usr/share/haarcascade.xml" {
		t.Errorf("expected cascade override, got '%s'", cfg.Detector.Cascade)
	}
	if cfg.Training.Quota != 20 {
		t.Errorf("expected quota 20, got %d", cfg.Training.Quota)
	}
	if cfg.Training.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Training.Seed)
	}
	if cfg.Thresholds.Recognition != 55.5 {
		t.Errorf("expected recognition threshold 55.5, got %v", cfg.Thresholds.Recognition)
	}
	if cfg.LBPH.GridX != 8 {
		t.Errorf("expected grid x 8, got %d", cfg.LBPH.GridX)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("expected host override, got '%s'", cfg.Web.Host)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric quota", "TRAINING_QUOTA", "many"},
		{"zero quota", "TRAINING_QUOTA", "0"},
		{"negative quota", "TRAINING_QUOTA", "-5"},
		{"negative threshold", "RECOGNITION_THRESHOLD", "-1"},
		{"garbage threshold", "RECOGNITION_THRESHOLD", "high"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)

			cfg := Load()

			if cfg.Training.Quota != constants.DefaultTrainingQuota {
				t.Errorf("expected default quota, got %d", cfg.Training.Quota)
			}
			if cfg.Thresholds.Recognition != constants.DefaultRecognitionThreshold {
				t.Errorf("expected default recognition threshold, got %v", cfg.Thresholds.Recognition)
			}
		})
	}
}
