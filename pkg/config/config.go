package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type (
	// Application is the full configuration of one awsmap run, assembled
	// once at startup from an optional config file plus CLI flags and then
	// passed by reference into every component. There is no ambient global.
	Application struct {
		// Format is what format the file was originally in, for diagnostics.
		Format string `json:"-" yaml:"-" toml:"-"`

		OutDir  string   `json:"out_dir" yaml:"out_dir" toml:"out_dir"`
		Formats []string `json:"formats" yaml:"formats" toml:"formats"`

		Workers int `json:"workers" yaml:"workers" toml:"workers"`
		Retries int `json:"retries" yaml:"retries" toml:"retries"`
		// Timeout bounds an entire fresh collection ("" or "0" = none).
		// Parsed by TimeoutDuration.
		Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`

		Profile string `json:"profile,omitempty" yaml:"profile,omitempty" toml:"profile,omitempty"`
		Region  string `json:"region" yaml:"region" toml:"region"`

		Cache   CacheConfig  `json:"cache" yaml:"cache" toml:"cache"`
		RSS     RSSConfig    `json:"rss" yaml:"rss" toml:"rss"`
		Filters FilterConfig `json:"filters" yaml:"filters" toml:"filters"`
	}

	CacheConfig struct {
		Disabled bool    `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
		Hours    float64 `json:"hours" yaml:"hours" toml:"hours"`
		File     string  `json:"file" yaml:"file" toml:"file"`
	}

	RSSConfig struct {
		Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
		URL      string `json:"url" yaml:"url" toml:"url"`
		// AllowHTTP permits a plain-http feed URL. Off by default.
		AllowHTTP bool `json:"allow_http,omitempty" yaml:"allow_http,omitempty" toml:"allow_http,omitempty"`
	}

	FilterConfig struct {
		IncludeRegions  []string `json:"include_regions,omitempty" yaml:"include_regions,omitempty" toml:"include_regions,omitempty"`
		ExcludeRegions  []string `json:"exclude_regions,omitempty" yaml:"exclude_regions,omitempty" toml:"exclude_regions,omitempty"`
		IncludeServices []string `json:"include_services,omitempty" yaml:"include_services,omitempty" toml:"include_services,omitempty"`
		ExcludeServices []string `json:"exclude_services,omitempty" yaml:"exclude_services,omitempty" toml:"exclude_services,omitempty"`
		MinServices     int      `json:"min_services,omitempty" yaml:"min_services,omitempty" toml:"min_services,omitempty"`
	}
)

const (
	DefaultOutDir     = "reports"
	DefaultWorkers    = 10
	DefaultRetries    = 3
	DefaultRegion     = "us-east-1"
	DefaultCacheHours = 24
	DefaultCacheFile  = "cache/awsmap_data_cache.json"
	DefaultRSSURL     = "https://docs.aws.amazon.com/global-infrastructure/latest/regions/regions.rss"
)

// Defaults returns an Application populated with every default value.
func Defaults() Application {
	return Application{
		OutDir:  DefaultOutDir,
		Formats: []string{"csv"},
		Workers: DefaultWorkers,
		Retries: DefaultRetries,
		Region:  DefaultRegion,
		Cache: CacheConfig{
			Hours: DefaultCacheHours,
			File:  DefaultCacheFile,
		},
		RSS: RSSConfig{
			URL: DefaultRSSURL,
		},
	}
}

func ReadConfig(fpath string) (Application, error) {
	appCfg := Defaults()

	f, err := os.Open(fpath)
	if err != nil {
		return appCfg, err
	}
	defer f.Close() // nolint:errcheck

	switch filepath.Ext(fpath) {
	case ".json":
		err = json.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "toml"

	default:
		err = fmt.Errorf("unsupported config extension %q", filepath.Ext(fpath))
	}
	return appCfg, err
}

// TimeoutDuration parses the optional global collection deadline.
// Zero means no deadline.
func (a Application) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" || a.Timeout == "0" {
		return 0, nil
	}
	return time.ParseDuration(a.Timeout)
}

// CacheFilePath resolves the cache file location. Relative paths land under
// the output directory so that one report tree carries its own cache.
func (a Application) CacheFilePath() string {
	if filepath.IsAbs(a.Cache.File) {
		return a.Cache.File
	}
	return filepath.Join(a.OutDir, a.Cache.File)
}

// Validate rejects configurations that cannot produce a run.
func (a Application) Validate() error {
	if a.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", a.Workers)
	}
	if a.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", a.Retries)
	}
	if a.Cache.Hours < 0 {
		return fmt.Errorf("cache hours must not be negative, got %v", a.Cache.Hours)
	}
	if len(a.Formats) == 0 {
		return fmt.Errorf("at least one output format is required")
	}
	if _, err := a.TimeoutDuration(); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", a.Timeout, err)
	}
	return nil
}
