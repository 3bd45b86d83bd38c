// Package config provides configuration loading for the photocards server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageDisk = "disk"
	StorageS3   = "s3"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Port to listen on (default: 8080)
	Port string `yaml:"port"`
	// BaseURL is the externally visible URL, used for disk-backed photo URLs
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	// Path is the SQLite file (default: photocards.db)
	Path string `yaml:"path"`
}

// StorageConfig configures photo storage
type StorageConfig struct {
	// Backend is "disk" or "s3" (default: disk)
	Backend string `yaml:"backend"`
	// Bucket names the bucket; it is also the marker searched for in photo URLs
	Bucket string `yaml:"bucket"`
	// Dir is the root directory for the disk backend
	Dir string   `yaml:"dir"`
	S3  S3Config `yaml:"s3"`
}

// S3Config configures the S3 backend
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PublicBaseURL   string `yaml:"public_base_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path: "photocards.db",
		},
		Storage: StorageConfig{
			Backend: StorageDisk,
			Bucket:  "cards",
			Dir:     "storage",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load reads path when non-empty, then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Server.BaseURL, "PHOTOCARDS_BASE_URL")
	set(&c.Database.Path, "PHOTOCARDS_DB_PATH")
	set(&c.Storage.Backend, "PHOTOCARDS_STORAGE_BACKEND")
	set(&c.Storage.Bucket, "PHOTOCARDS_BUCKET")
	set(&c.Storage.Dir, "PHOTOCARDS_STORAGE_DIR")
	set(&c.Storage.S3.Region, "PHOTOCARDS_S3_REGION")
	set(&c.Storage.S3.Endpoint, "PHOTOCARDS_S3_ENDPOINT")
	set(&c.Storage.S3.PublicBaseURL, "PHOTOCARDS_S3_PUBLIC_BASE_URL")
	set(&c.Storage.S3.AccessKeyID, "PHOTOCARDS_S3_ACCESS_KEY_ID")
	set(&c.Storage.S3.SecretAccessKey, "PHOTOCARDS_S3_SECRET_ACCESS_KEY")
	set(&c.Log.Level, "LOG_LEVEL")
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	switch c.Storage.Backend {
	case StorageDisk:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the disk backend")
		}
	case StorageS3:
		if c.Storage.S3.Region == "" && c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3.region or storage.s3.endpoint is required")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageDisk, StorageS3, c.Storage.Backend)
	}
	return nil
}
