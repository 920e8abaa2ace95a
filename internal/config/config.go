// YAML config loader with CUE validation and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the relay service.
type Config struct {
	AuthToken              string `yaml:"auth_token"`
	SQLitePath             string `yaml:"sqlite_path"`
	PhotosDir              string `yaml:"photos_dir"`
	PublicURL              string `yaml:"public_url"`
	CloudinaryUploadURL    string `yaml:"cloudinary_upload_url"`
	CloudinaryUploadPreset string `yaml:"cloudinary_upload_preset"`
	StaticDir              string `yaml:"static_dir"`
	Port                   int    `yaml:"port"`
	LogFile                string `yaml:"log_file"`
	GreptimeEndpoint       string `yaml:"greptime_endpoint"`
	GreptimeTable          string `yaml:"greptime_table"`
}

// Default returns the configuration used when no YAML file is present.
func Default() *Config {
	return &Config{
		AuthToken:     "change-this-secret",
		SQLitePath:    "/data/telemetry.db",
		PhotosDir:     "/data/photos",
		StaticDir:     "web/static",
		Port:          8000,
		GreptimeTable: "telemetry",
	}
}

// Load reads the YAML config, validates it against the CUE schema, and
// applies environment overrides. A missing config file is not an error:
// hosted deployments configure the relay through the environment alone.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// env-only deployment
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if cueSchemaPath != "" {
				if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
					return nil, err
				}
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("auth_token must not be empty")
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrideString(&c.AuthToken, "AUTH_TOKEN")
	overrideString(&c.SQLitePath, "SQLITE_PATH")
	overrideString(&c.PhotosDir, "PHOTOS_DIR")
	overrideString(&c.PublicURL, "PUBLIC_URL")
	overrideString(&c.CloudinaryUploadURL, "CLOUDINARY_UPLOAD_URL")
	overrideString(&c.CloudinaryUploadPreset, "CLOUDINARY_UPLOAD_PRESET")
	overrideString(&c.StaticDir, "STATIC_DIR")
	overrideString(&c.LogFile, "LOG_FILE")
	overrideString(&c.GreptimeEndpoint, "GREPTIMEDB_ENDPOINT")
	overrideString(&c.GreptimeTable, "GREPTIMEDB_TABLE")

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = p
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// RemoteUploadConfigured reports whether the remote photo sink is fully
// configured. Both the upload URL and the preset are required; anything
// less falls back to local disk storage.
func (c *Config) RemoteUploadConfigured() bool {
	return c.CloudinaryUploadURL != "" && c.CloudinaryUploadPreset != ""
}

// Addr returns the listen address derived from Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
