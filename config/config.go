// Package config loads the share pipeline settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/acquire"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/batch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/capability"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/compress"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/dispatch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/native"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "1.5s" or "48h" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Limits is a capability tier expressed in megabytes.
type Limits struct {
	MaxFiles    int     `yaml:"max_files" toml:"max_files"`
	MaxTotalMB  float64 `yaml:"max_total_mb" toml:"max_total_mb"`
	MaxSingleMB float64 `yaml:"max_single_mb" toml:"max_single_mb"`
}

func limitsFrom(l photoshare.SizeLimits) Limits {
	return Limits{
		MaxFiles:    l.MaxFiles,
		MaxTotalMB:  float64(l.MaxTotalBytes) / capability.MB,
		MaxSingleMB: float64(l.MaxSingleFileBytes) / capability.MB,
	}
}

// SizeLimits converts l to byte ceilings.
func (l Limits) SizeLimits() photoshare.SizeLimits {
	return photoshare.SizeLimits{
		MaxFiles:           l.MaxFiles,
		MaxTotalBytes:      int64(l.MaxTotalMB * capability.MB),
		MaxSingleFileBytes: int64(l.MaxSingleMB * capability.MB),
	}
}

type Rung struct {
	MaxDimension int     `yaml:"max_dimension" toml:"max_dimension"`
	Quality      float64 `yaml:"quality" toml:"quality"`
}

type StoreConfig struct {
	Type string `yaml:"type" toml:"type"`
	Path string `yaml:"path" toml:"path"`
}

type CapabilityConfig struct {
	IOS     Limits `yaml:"ios" toml:"ios"`
	Default Limits `yaml:"default" toml:"default"`
}

type AcquireConfig struct {
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
	MaxMB       float64  `yaml:"max_mb" toml:"max_mb"`
	BypassCache bool     `yaml:"bypass_cache" toml:"bypass_cache"`
}

type LinksConfig struct {
	FallbackDelay Duration `yaml:"fallback_delay" toml:"fallback_delay"`
	ItemDelay     Duration `yaml:"item_delay" toml:"item_delay"`
}

type NativeConfig struct {
	ScratchDir    string   `yaml:"scratch_dir" toml:"scratch_dir"`
	SingleCleanup Duration `yaml:"single_cleanup" toml:"single_cleanup"`
	MultiCleanup  Duration `yaml:"multi_cleanup" toml:"multi_cleanup"`
}

type GalleryConfig struct {
	Title               string   `yaml:"title" toml:"title"`
	Expiry              Duration `yaml:"expiry" toml:"expiry"`
	IncludeBusinessInfo bool     `yaml:"include_business_info" toml:"include_business_info"`
	Watermark           bool     `yaml:"watermark" toml:"watermark"`
}

// Options converts g to gallery display options.
func (g GalleryConfig) Options() gallery.Options {
	return gallery.Options{
		Title:               g.Title,
		Expiry:              g.Expiry.Std(),
		IncludeBusinessInfo: g.IncludeBusinessInfo,
		Watermark:           g.Watermark,
	}
}

// Config is the complete pipeline configuration.
type Config struct {
	Runtime    photoshare.RuntimeContext `yaml:"runtime" toml:"runtime"`
	Store      StoreConfig               `yaml:"store" toml:"store"`
	Capability CapabilityConfig          `yaml:"capability" toml:"capability"`
	Ladder     []Rung                    `yaml:"ladder" toml:"ladder"`
	Acquire    AcquireConfig             `yaml:"acquire" toml:"acquire"`
	Links      LinksConfig               `yaml:"links" toml:"links"`
	Native     NativeConfig              `yaml:"native" toml:"native"`
	Gallery    GalleryConfig             `yaml:"gallery" toml:"gallery"`
	BatchSize  int                       `yaml:"batch_size" toml:"batch_size"`
	Thresholds dispatch.Thresholds       `yaml:"thresholds" toml:"thresholds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ladder := make([]Rung, len(compress.DefaultLadder))
	for i, r := range compress.DefaultLadder {
		ladder[i] = Rung{MaxDimension: r.MaxDimension, Quality: r.Quality}
	}
	g := gallery.DefaultOptions()
	return &Config{
		Runtime: photoshare.RuntimeContext{
			Platform:          photoshare.PlatformWeb,
			ProviderAuthority: native.DefaultAuthority,
			Origin:            "http://localhost:8080",
		},
		Store: StoreConfig{Type: db.TypeBolt, Path: "galleries.db"},
		Capability: CapabilityConfig{
			IOS:     limitsFrom(capability.IOSLimits),
			Default: limitsFrom(capability.DefaultLimits),
		},
		Ladder: ladder,
		Acquire: AcquireConfig{
			Timeout: Duration(acquire.DefaultTimeout),
			MaxMB:   float64(acquire.DefaultMaxBytes) / capability.MB,
		},
		Links: LinksConfig{
			FallbackDelay: Duration(urlscheme.DefaultFallbackDelay),
			ItemDelay:     Duration(urlscheme.DefaultItemDelay),
		},
		Native: NativeConfig{
			ScratchDir:    os.TempDir(),
			SingleCleanup: Duration(native.SingleCleanupDelay),
			MultiCleanup:  Duration(native.MultiCleanupDelay),
		},
		Gallery: GalleryConfig{
			Title:               g.Title,
			Expiry:              Duration(g.Expiry),
			IncludeBusinessInfo: g.IncludeBusinessInfo,
			Watermark:           g.Watermark,
		},
		BatchSize:  batch.DefaultSize,
		Thresholds: dispatch.DefaultThresholds(),
	}
}

// Load reads path over the defaults. The format is picked by extension. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (must be .yaml, .yml, or .toml)", ext)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PHOTOSHARE_ORIGIN"); v != "" {
		c.Runtime.Origin = v
	}
	if v := os.Getenv("PHOTOSHARE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PHOTOSHARE_DB_TYPE"); v != "" {
		c.Store.Type = v
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case db.TypeBolt, db.TypePebble, db.TypeSQLite, db.TypeFileTree:
	default:
		return fmt.Errorf("invalid store type: %s (must be '%s', '%s', '%s', or '%s')", c.Store.Type, db.TypeBolt, db.TypePebble, db.TypeSQLite, db.TypeFileTree)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	for name, l := range map[string]Limits{"ios": c.Capability.IOS, "default": c.Capability.Default} {
		if l.MaxFiles <= 0 || l.MaxTotalMB <= 0 || l.MaxSingleMB <= 0 {
			return fmt.Errorf("capability %s: limits must be positive", name)
		}
		if l.MaxSingleMB > l.MaxTotalMB {
			return fmt.Errorf("capability %s: max_single_mb exceeds max_total_mb", name)
		}
	}
	if len(c.Ladder) == 0 {
		return fmt.Errorf("compression ladder is empty")
	}
	for i, r := range c.Ladder {
		if r.MaxDimension <= 0 {
			return fmt.Errorf("ladder rung %d: max_dimension must be positive", i)
		}
		if r.Quality <= 0 || r.Quality > 1 {
			return fmt.Errorf("ladder rung %d: quality must be in (0, 1]", i)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	th := c.Thresholds
	if th.Files <= 0 || th.Batched < th.Files || th.BatchMax < th.Batched {
		return fmt.Errorf("thresholds must satisfy 0 < files <= batched <= batch_max")
	}
	if c.Gallery.Expiry <= 0 {
		return fmt.Errorf("gallery expiry must be positive")
	}
	return nil
}

// CompressLadder converts the configured rungs.
func (c *Config) CompressLadder() []compress.Rung {
	out := make([]compress.Rung, len(c.Ladder))
	for i, r := range c.Ladder {
		out[i] = compress.Rung{MaxDimension: r.MaxDimension, Quality: r.Quality}
	}
	return out
}
