package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Vertex  VertexConfig  `yaml:"vertex"`
	Report  ReportConfig  `yaml:"report"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Duration is a time.Duration that unmarshals from YAML either as integer
// nanoseconds or as a human-readable string like "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value %q", node.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// VertexConfig holds the Vertex gateway/archive endpoints and the snapshot
// query tunables. The defaults reproduce the fixed constants the report was
// designed around: 72 hourly snapshots per request, a 2000-snapshot server
// payload limit and a 500ms pause between batch requests.
type VertexConfig struct {
	AssetsURL          string   `yaml:"assets_url"`
	ArchiveURL         string   `yaml:"archive_url"`
	SnapshotCount      int      `yaml:"snapshot_count"`
	GranularitySeconds int64    `yaml:"granularity_seconds"`
	MaxTimeMargin      int64    `yaml:"max_time_margin_seconds"`
	SnapshotLimit      int      `yaml:"snapshot_limit"`
	BatchDelay         Duration `yaml:"batch_delay"`
	RequestTimeout     Duration `yaml:"request_timeout"`
}

// ReportConfig controls the ranked report output. AveragingDivisorDays is the
// divisor applied to the per-ticker sum of hourly rates; it is only meaningful
// when snapshot_count*granularity_seconds covers exactly that many days, which
// Validate enforces.
type ReportConfig struct {
	Path                 string `yaml:"path"`
	AveragingDivisorDays int    `yaml:"averaging_divisor_days"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "vertex-funding-rates",
			Version: "1.0",
		},
		Vertex: VertexConfig{
			AssetsURL:          "https://gateway.prod.vertexprotocol.com/v2/assets",
			ArchiveURL:         "https://archive.prod.vertexprotocol.com/v1",
			SnapshotCount:      72,
			GranularitySeconds: 3600,
			MaxTimeMargin:      5,
			SnapshotLimit:      2000,
			BatchDelay:         Duration(500 * time.Millisecond),
			RequestTimeout:     Duration(30 * time.Second),
		},
		Report: ReportConfig{
			Path:                 "vertexrates.txt",
			AveragingDivisorDays: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// LoadConfig reads the YAML configuration at path on top of the defaults. An
// empty path or a missing file yields the defaults unchanged, so the binary
// runs without any configuration present.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override endpoints from environment variables if available
	if v := os.Getenv("VERTEX_ASSETS_URL"); v != "" {
		config.Vertex.AssetsURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("VERTEX_ARCHIVE_URL"); v != "" {
		config.Vertex.ArchiveURL = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Vertex.AssetsURL == "" {
		return fmt.Errorf("vertex.assets_url is required")
	}
	if cfg.Vertex.ArchiveURL == "" {
		return fmt.Errorf("vertex.archive_url is required")
	}
	if cfg.Vertex.SnapshotCount <= 0 {
		return fmt.Errorf("vertex.snapshot_count must be greater than 0")
	}
	if cfg.Vertex.GranularitySeconds <= 0 {
		return fmt.Errorf("vertex.granularity_seconds must be greater than 0")
	}
	if cfg.Vertex.SnapshotLimit < cfg.Vertex.SnapshotCount {
		return fmt.Errorf("vertex.snapshot_limit %d is below vertex.snapshot_count %d, no batch can fit a single request",
			cfg.Vertex.SnapshotLimit, cfg.Vertex.SnapshotCount)
	}
	if cfg.Vertex.BatchDelay < 0 {
		return fmt.Errorf("vertex.batch_delay must not be negative")
	}

	if cfg.Report.Path == "" {
		return fmt.Errorf("report.path is required")
	}
	if cfg.Report.AveragingDivisorDays <= 0 {
		return fmt.Errorf("report.averaging_divisor_days must be greater than 0")
	}

	// The averaging divisor reinterprets the sum of hourly rates as an average
	// daily rate. That only holds when the requested snapshot window covers
	// exactly that many days.
	window := int64(cfg.Vertex.SnapshotCount) * cfg.Vertex.GranularitySeconds
	if window != int64(cfg.Report.AveragingDivisorDays)*86400 {
		return fmt.Errorf("snapshot window of %ds does not cover exactly %d days; adjust snapshot_count, granularity_seconds or averaging_divisor_days",
			window, cfg.Report.AveragingDivisorDays)
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
