// Package config loads runtime configuration from a file and the
// environment. Every knob has a default that works for a local run
// against staged archives.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	// Port is the HTTP listen port for the server binary.
	Port string `mapstructure:"port"`

	// ControlDir holds the model and observation control files plus the
	// datum audit reports.
	ControlDir string `mapstructure:"control_dir"`
	// ModelRoot is the local model archive root; per-OFS netcdf trees
	// live beneath it.
	ModelRoot string `mapstructure:"model_root"`
	// CacheDir receives files staged from object storage.
	CacheDir string `mapstructure:"cache_dir"`
	// AuxDir holds auxiliary correction grids.
	AuxDir string `mapstructure:"aux_dir"`

	// UseS3 enables the object-store fallback for model files missing
	// from the local archive.
	UseS3 bool `mapstructure:"use_s3"`
	// ModelBucket is the open-data bucket holding model output.
	ModelBucket string `mapstructure:"model_bucket"`
	// STOFSBucket holds the STOFS 3-D output, published separately.
	STOFSBucket string `mapstructure:"stofs_bucket"`
	// VDatumBucket holds the per-OFS datum conversion files.
	VDatumBucket string `mapstructure:"vdatum_bucket"`
	// AWSRegion is the region of the open-data buckets.
	AWSRegion string `mapstructure:"aws_region"`

	// TransformURL is the geodetic transform service endpoint.
	TransformURL string `mapstructure:"transform_url"`
	// USGSAPIKey raises the USGS observation fetch concurrency.
	USGSAPIKey string `mapstructure:"usgs_api_key"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig controls the structured log output.
type LogConfig struct {
	// Path of the rotating log file; empty logs to stderr only.
	Path string `mapstructure:"path"`
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// MaxSizeMB rotates the file beyond this size.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups bounds how many rotated files stay.
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAgeDays drops rotated files older than this.
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// Load reads configuration from an optional file plus OFS_-prefixed
// environment variables. path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("control_dir", "./control_files")
	v.SetDefault("model_root", "./model_data")
	v.SetDefault("cache_dir", "./cache")
	v.SetDefault("aux_dir", "./aux")
	v.SetDefault("use_s3", true)
	v.SetDefault("model_bucket", "noaa-nos-ofs-pds")
	v.SetDefault("stofs_bucket", "noaa-nos-stofs3d-pds")
	v.SetDefault("vdatum_bucket", "noaa-nos-ofs-pds")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("transform_url", "https://vdatum.noaa.gov/vdatumweb/api/convert")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetEnvPrefix("OFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}
