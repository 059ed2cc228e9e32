package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
	LogDir    string `toml:"log_dir"`
}

// Detection contains configuration for the stage occupancy detector and its
// tracker backend.
type Detection struct {
	LeftZoneEndFraction     float64 `toml:"left_zone_end_fraction"`
	CenterZoneWidthFraction float64 `toml:"center_zone_width_fraction"`
	MinDurationSeconds      float64 `toml:"min_duration_seconds"`
	MaxSeconds              float64 `toml:"max_seconds"`
	// ModelPath points at a darknet-style detection model: one output row
	// per candidate holding cx, cy, w, h, objectness and per-class scores,
	// with coordinates normalized to the network input. Newer YOLO ONNX
	// exports emit a batched pixel-unit layout and are not supported.
	ModelPath           string  `toml:"model_path"`
	ModelConfigPath     string  `toml:"model_config_path"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	PersonClassID       int     `toml:"person_class_id"`
}

// Sync contains configuration for audio offset estimation.
type Sync struct {
	SampleRate       int     `toml:"sample_rate"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
	MinCorrelation   float64 `toml:"min_correlation"`
}

// Encoding contains configuration for segment transcoding.
type Encoding struct {
	UseGPU       bool    `toml:"use_gpu"`
	Deinterlace  bool    `toml:"deinterlace"`
	AudioBitrate string  `toml:"audio_bitrate"`
	VideoVolume  float64 `toml:"video_volume"`
	MicVolume    float64 `toml:"mic_volume"`
}

// Upload contains configuration for the YouTube upload scheduler.
type Upload struct {
	StateFile         string `toml:"state_file"`
	ClientSecretsFile string `toml:"client_secrets_file"`
	TokenFile         string `toml:"token_file"`
	DailyQuotaUnits   int    `toml:"daily_quota_units"`
	UploadCostUnits   int    `toml:"upload_cost_units"`
	MaxRetries        int    `toml:"max_retries"`
	ChunkSizeMiB      int    `toml:"chunk_size_mib"`
	PrivacyStatus     string `toml:"privacy_status"`
	CategoryID        string `toml:"category_id"`
	Language          string `toml:"language"`
	QuotaTimeZone     string `toml:"quota_time_zone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cvcutter.
//
// Configuration sections by subsystem:
//   - Paths: output, temp, and log directories
//   - Detection: zone geometry, minimum duration, tracker model
//   - Sync: audio cross-correlation sample rate and consensus tolerance
//   - Encoding: codec path, deinterlacing, per-track audio gains
//   - Upload: quota budget, retry bounds, persisted state location
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Detection Detection `toml:"detection"`
	Sync      Sync      `toml:"sync"`
	Encoding  Encoding  `toml:"encoding"`
	Upload    Upload    `toml:"upload"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cvcutter/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves ~ prefixes and cleans the path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cvcutter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Upload.StateFile); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
