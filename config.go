package extracta

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file-based counterpart of the fluent options, for callers
// that drive extraction from a YAML config instead of code.
type Config struct {
	OCRLanguages []string `yaml:"ocr_languages"`
	VisionAPIKey string   `yaml:"vision_api_key"`
	VisionModel  string   `yaml:"vision_model"`

	RasterDPI int `yaml:"raster_dpi"`

	LibreOfficePath string        `yaml:"libreoffice_path"`
	ConvertTimeout  time.Duration `yaml:"convert_timeout"`

	MaxRefLen  int `yaml:"max_ref_len"`
	SummaryLen int `yaml:"summary_len"`

	Retry RetryConfig `yaml:"retry"`

	WorkDir string `yaml:"work_dir"`
}

// RetryConfig controls recognition retry behavior.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// apply folds the config into extraction options. Zero values leave the
// corresponding option untouched.
func (c *Config) apply(o ExtractOptions) ExtractOptions {
	if len(c.OCRLanguages) > 0 {
		o.ocrLanguages = append([]string(nil), c.OCRLanguages...)
	}
	if c.VisionAPIKey != "" {
		o.visionAPIKey = c.VisionAPIKey
	}
	if c.VisionModel != "" {
		o.visionModel = c.VisionModel
	}
	if c.RasterDPI > 0 {
		o.rasterDPI = c.RasterDPI
	}
	if c.LibreOfficePath != "" {
		o.libreOfficePath = c.LibreOfficePath
	}
	if c.ConvertTimeout > 0 {
		o.convertTimeout = c.ConvertTimeout
	}
	if c.MaxRefLen > 0 {
		o.maxRefLen = c.MaxRefLen
	}
	if c.SummaryLen > 0 {
		o.summaryLen = c.SummaryLen
	}
	if c.Retry.MaxAttempts > 0 {
		o.retryPolicy.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay > 0 {
		o.retryPolicy.BaseDelay = c.Retry.BaseDelay
	}
	if c.Retry.MaxDelay > 0 {
		o.retryPolicy.MaxDelay = c.Retry.MaxDelay
	}
	if c.WorkDir != "" {
		o.workDir = c.WorkDir
	}
	return o
}
