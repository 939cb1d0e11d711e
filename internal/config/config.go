package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/keagan/viddup/pkg/util"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvDatabase overrides the database path when set.
const EnvDatabase = "VIDDUP_DB"

// Config holds all application configuration
type Config struct {
	// Core settings
	Database   string   `yaml:"database"`
	Extensions []string `yaml:"extensions"`

	// Fingerprinting settings
	Fingerprint FingerprintConfig `yaml:"fingerprint"`

	// Search settings
	Search SearchConfig `yaml:"search"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

type FingerprintConfig struct {
	// PeakSpacing is the minimum distance in seconds between two scene peaks.
	PeakSpacing float64 `yaml:"peak_spacing"`
}

type SearchConfig struct {
	WindowLen int     `yaml:"window_len"`
	SceneCap  float64 `yaml:"scene_cap"`
	Radius    float64 `yaml:"radius"`
	Step      int     `yaml:"step"`
	TrimStart float64 `yaml:"trim_start"`
	TrimEnd   float64 `yaml:"trim_end"`
	Backend   string  `yaml:"backend"`
}

type FFmpegConfig struct {
	Threads int `yaml:"threads"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return applyEnv(cfg), nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		Database:   "./viddup.sqlite",
		Extensions: []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".m4v", ".mpg", ".wmv"},
		Fingerprint: FingerprintConfig{
			PeakSpacing: 10,
		},
		Search: SearchConfig{
			WindowLen: 10,
			SceneCap:  300,
			Radius:    3.0,
			Step:      1,
			TrimStart: 0,
			TrimEnd:   0,
			Backend:   "kdtree",
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
		},
	}
}

func applyEnv(cfg *Config) *Config {
	if db := os.Getenv(EnvDatabase); db != "" {
		cfg.Database = db
	}
	return cfg
}

func findConfigFile() string {
	candidates := []string{
		"./viddup.yaml",
		"./viddup.yml",
		filepath.Join(os.Getenv("HOME"), ".viddup", "config.yaml"),
	}

	for _, path := range candidates {
		if util.FileExists(path) {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
