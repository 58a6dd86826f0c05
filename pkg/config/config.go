// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/user/clipforge/pkg/orchestrator"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/stages/transcode"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for clipforge.
type Config struct {
	Strategy   string           `yaml:"strategy"`
	LogLevel   string           `yaml:"log_level"`
	Engine     EngineConfig     `yaml:"engine"`
	Capture    CaptureConfig    `yaml:"capture"`
	Transcode  TranscodeConfig  `yaml:"transcode"`
	Remote     RemoteConfig     `yaml:"remote"`
	Conversion ConversionConfig `yaml:"conversion"`
	Progress   ProgressConfig   `yaml:"progress"`
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
}

// EngineConfig locates the ffmpeg binary and its scratch space.
type EngineConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	WorkDir    string `yaml:"work_dir"`
}

// CaptureConfig holds realtime recording settings.
type CaptureConfig struct {
	FPS             int      `yaml:"fps"`
	Bitrate         int      `yaml:"bitrate"`
	FlushMs         int      `yaml:"flush_ms"`
	StopMarginMs    int      `yaml:"stop_margin_ms"`
	TickMs          int      `yaml:"tick_ms"`
	SeekTimeoutMs   int      `yaml:"seek_timeout_ms"`
	StopTimeoutMs   int      `yaml:"stop_timeout_ms"`
	MimePreferences []string `yaml:"mime_preferences"`
}

// TranscodeConfig holds encoder settings of the software jobs.
type TranscodeConfig struct {
	RemuxPreset     string `yaml:"remux_preset"`
	RemuxCRF        int    `yaml:"remux_crf"`
	CompositePreset string `yaml:"composite_preset"`
	CompositeCRF    int    `yaml:"composite_crf"`
	ExtractPreset   string `yaml:"extract_preset"`
	ExtractCRF      int    `yaml:"extract_crf"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	FetchTimeoutMs  int    `yaml:"fetch_timeout_ms"`
	MaxSourceMB     int64  `yaml:"max_source_mb"`
}

// RemoteConfig points at a conversion service.
type RemoteConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ConversionConfig selects the post-export conversion.
type ConversionConfig struct {
	Mode string `yaml:"mode"` // none, local or remote
}

// ProgressConfig controls progress display.
type ProgressConfig struct {
	Show bool `yaml:"show"`
}

// ServerConfig configures the conversion service.
type ServerConfig struct {
	Listen       string   `yaml:"listen"`
	MaxUploadMB  int64    `yaml:"max_upload_mb"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// BrowserConfig configures the headless compositor host.
type BrowserConfig struct {
	ChromePath      string `yaml:"chrome_path"`
	Headless        bool   `yaml:"headless"`
	SurfaceSelector string `yaml:"surface_selector"`
	MediaSelector   string `yaml:"media_selector"`
	LoadTimeoutMs   int    `yaml:"load_timeout_ms"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	rec := pipeline.DefaultRecordInput()
	tc := transcode.DefaultOptions()
	return Config{
		Strategy: "auto",
		LogLevel: "info",

		Capture: CaptureConfig{
			FPS:             rec.FPS,
			Bitrate:         rec.VideoBitsPerSecond,
			FlushMs:         int(rec.FlushInterval / time.Millisecond),
			StopMarginMs:    int(rec.StopMargin / time.Millisecond),
			TickMs:          int(rec.TickInterval / time.Millisecond),
			SeekTimeoutMs:   int(rec.SeekTimeout / time.Millisecond),
			StopTimeoutMs:   int(rec.StopTimeout / time.Millisecond),
			MimePreferences: rec.MimePreferences,
		},

		Transcode: TranscodeConfig{
			RemuxPreset:     tc.RemuxPreset,
			RemuxCRF:        tc.RemuxCRF,
			CompositePreset: tc.CompositePreset,
			CompositeCRF:    tc.CompositeCRF,
			ExtractPreset:   tc.ExtractPreset,
			ExtractCRF:      tc.ExtractCRF,
			Width:           tc.Width,
			Height:          tc.Height,
			FetchTimeoutMs:  300000,
			MaxSourceMB:     2048,
		},

		Remote: RemoteConfig{
			TimeoutMs: 600000,
		},

		Conversion: ConversionConfig{Mode: "none"},
		Progress:   ProgressConfig{Show: true},

		Server: ServerConfig{
			Listen:       ":3001",
			MaxUploadMB:  500,
			AllowOrigins: []string{"*"},
		},

		Browser: BrowserConfig{
			Headless:        true,
			SurfaceSelector: "canvas",
			MediaSelector:   "video",
			LoadTimeoutMs:   30000,
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Missing keys keep
// their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a stage.
func (c Config) Validate() error {
	if _, err := orchestrator.ParseConversionMode(c.Conversion.Mode); err != nil {
		return err
	}
	if c.Conversion.Mode == string(orchestrator.ConversionRemote) && c.Remote.BaseURL == "" {
		return fmt.Errorf("conversion mode remote requires remote.base_url")
	}
	if c.Capture.FPS <= 0 {
		return fmt.Errorf("capture.fps must be positive, got %d", c.Capture.FPS)
	}
	if c.Transcode.Width <= 0 || c.Transcode.Height <= 0 {
		return fmt.Errorf("transcode size must be positive, got %dx%d", c.Transcode.Width, c.Transcode.Height)
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// RecordInput converts the capture section to record stage parameters.
func (c Config) RecordInput() pipeline.RecordInput {
	in := pipeline.DefaultRecordInput()
	in.FPS = c.Capture.FPS
	in.VideoBitsPerSecond = c.Capture.Bitrate
	in.FlushInterval = ms(c.Capture.FlushMs)
	in.StopMargin = ms(c.Capture.StopMarginMs)
	in.TickInterval = ms(c.Capture.TickMs)
	in.SeekTimeout = ms(c.Capture.SeekTimeoutMs)
	in.StopTimeout = ms(c.Capture.StopTimeoutMs)
	if len(c.Capture.MimePreferences) > 0 {
		in.MimePreferences = c.Capture.MimePreferences
	}
	return in
}

// TranscodeOptions converts the transcode section to job options.
func (c Config) TranscodeOptions() transcode.Options {
	opts := transcode.DefaultOptions()
	opts.RemuxPreset = c.Transcode.RemuxPreset
	opts.RemuxCRF = c.Transcode.RemuxCRF
	opts.CompositePreset = c.Transcode.CompositePreset
	opts.CompositeCRF = c.Transcode.CompositeCRF
	opts.ExtractPreset = c.Transcode.ExtractPreset
	opts.ExtractCRF = c.Transcode.ExtractCRF
	opts.Width = c.Transcode.Width
	opts.Height = c.Transcode.Height
	return opts
}

// FetchTimeout returns the source download timeout.
func (c Config) FetchTimeout() time.Duration {
	return ms(c.Transcode.FetchTimeoutMs)
}

// MaxSourceBytes returns the source download cap.
func (c Config) MaxSourceBytes() int64 {
	return c.Transcode.MaxSourceMB << 20
}

// RemoteTimeout returns the remote conversion timeout.
func (c Config) RemoteTimeout() time.Duration {
	return ms(c.Remote.TimeoutMs)
}

// ToExportOptions converts Config to orchestrator.Config for one window.
func (c Config) ToExportOptions(window pipeline.ClipWindow, outputPath string) (orchestrator.Config, error) {
	mode, err := orchestrator.ParseConversionMode(c.Conversion.Mode)
	if err != nil {
		return orchestrator.Config{}, err
	}
	return orchestrator.Config{
		Window:     window,
		OutputPath: outputPath,
		Strategy:   c.Strategy,
		Record:     c.RecordInput(),
		Conversion: mode,
	}, nil
}
