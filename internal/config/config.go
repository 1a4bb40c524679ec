package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	DataDir    string           `yaml:"data_dir"`
	ModelDir   string           `yaml:"model_dir"`
	Classifier string           `yaml:"classifier"` // lbph or opencv-lbph
	Detector   DetectorConfig   `yaml:"detector"`
	Training   TrainingConfig   `yaml:"training"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	LBPH       LBPHConfig       `yaml:"lbph"`
	Web        WebConfig        `yaml:"web"`
}

type DetectorConfig struct {
	Backend      string  `yaml:"backend"` // pigo, opencv or dlib
	Cascade      string  `yaml:"cascade"` // cascade file (pigo, opencv) or model directory (dlib)
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

type TrainingConfig struct {
	Quota int   `yaml:"quota"`
	Seed  int64 `yaml:"seed"` // 0 means seeded from the clock
}

// ThresholdsConfig holds confidence thresholds on the 0-100 scale.
type ThresholdsConfig struct {
	Recognition float64 `yaml:"recognition"`
	Verify      float64 `yaml:"verify"`
	SelfTest    float64 `yaml:"selftest"`
}

type LBPHConfig struct {
	Radius    int     `yaml:"radius"`
	Neighbors int     `yaml:"neighbors"`
	GridX     int     `yaml:"grid_x"`
	GridY     int     `yaml:"grid_y"`
	Threshold float64 `yaml:"threshold"`
}

type WebConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"` // comma-separated, localhost is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envInt64 is envInt for 64-bit values such as seeds.
func envInt64(key string, defaultVal int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the embedded configuration without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		DataDir:    envString("DATA_DIR", d.DataDir),
		ModelDir:   envString("MODEL_DIR", d.ModelDir),
		Classifier: envString("CLASSIFIER", d.Classifier),
		Detector: DetectorConfig{
			Backend:      envString("DETECTOR", d.Detector.Backend),
			Cascade:      envString("DETECTOR_CASCADE", d.Detector.Cascade),
			ScaleFactor:  d.Detector.ScaleFactor,
			MinNeighbors: d.Detector.MinNeighbors,
			MinSize:      d.Detector.MinSize,
		},
		Training: TrainingConfig{
			Quota: envInt("TRAINING_QUOTA", d.Training.Quota),
			Seed:  envInt64("TRAINING_SEED", d.Training.Seed),
		},
		Thresholds: ThresholdsConfig{
			Recognition: envFloat("RECOGNITION_THRESHOLD", d.Thresholds.Recognition),
			Verify:      envFloat("VERIFY_THRESHOLD", d.Thresholds.Verify),
			SelfTest:    envFloat("SELFTEST_THRESHOLD", d.Thresholds.SelfTest),
		},
		LBPH: LBPHConfig{
			Radius:    envInt("LBPH_RADIUS", d.LBPH.Radius),
			Neighbors: envInt("LBPH_NEIGHBORS", d.LBPH.Neighbors),
			GridX:     envInt("LBPH_GRID_X", d.LBPH.GridX),
			GridY:     envInt("LBPH_GRID_Y", d.LBPH.GridY),
			Threshold: envFloat("LBPH_THRESHOLD", d.LBPH.Threshold),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", d.Web.Host),
			Port: envInt("WEB_PORT", d.Web.Port),

			AllowedOrigins: envString("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
		},
	}
}
