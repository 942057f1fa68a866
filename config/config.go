// Copyright (C) 2025 pubky-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SignupMode controls whether /signup requires a pre-issued code.
type SignupMode string

const (
	SignupOpen          SignupMode = "open"
	SignupTokenRequired SignupMode = "token_required"
)

// BlobBackendKind selects which blob.Backend implementation the
// process wires up.
type BlobBackendKind string

const (
	BlobBackendFilesystem BlobBackendKind = "filesystem"
	BlobBackendInMemory   BlobBackendKind = "in_memory"
	BlobBackendGoogleBucket BlobBackendKind = "google_bucket"
)

// Config is the typed configuration object the homeserver core reads,
// carrying the recognized homeserver options plus the nested
// structs needed to express them.
type Config struct {
	Environment string `yaml:"environment" json:"environment"`

	StorageDir        string     `yaml:"storage_dir" json:"storage_dir"`
	SignupMode        SignupMode `yaml:"signup_mode" json:"signup_mode"`
	DefaultQuotaBytes int64      `yaml:"default_quota_bytes" json:"default_quota_bytes"`

	PKDNS   PKDNSConfig   `yaml:"pkdns" json:"pkdns"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Blob    BlobConfig    `yaml:"blob" json:"blob"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Health  HealthConfig  `yaml:"health" json:"health"`
}

// PKDNSConfig groups the identity-and-discovery plane's tunables.
type PKDNSConfig struct {
	RepublishIntervalSeconds int      `yaml:"republish_interval_seconds" json:"republish_interval_seconds"`
	MaxRecordAgeSeconds      int      `yaml:"max_record_age_seconds" json:"max_record_age_seconds"`
	MinDHTStorers            int      `yaml:"min_dht_storers" json:"min_dht_storers"`
	Relays                   []string `yaml:"relays" json:"relays"`
}

// StoreConfig groups the metadata store's tunables.
type StoreConfig struct {
	ListLimitDefault int    `yaml:"list_limit_default" json:"list_limit_default"`
	ListLimitMax     int    `yaml:"list_limit_max" json:"list_limit_max"`
	PostgresDSN      string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// BlobConfig groups the blob backend's tunables.
type BlobConfig struct {
	Backend      BlobBackendKind `yaml:"backend" json:"backend"`
	GoogleBucket string          `yaml:"google_bucket" json:"google_bucket"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration.
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a YAML (or JSON) file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile saves configuration to a YAML file.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setDefaults fills in the documented defaults for any field the
// caller left at its zero value.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.SignupMode == "" {
		cfg.SignupMode = SignupOpen
	}
	if cfg.Store.ListLimitDefault == 0 {
		cfg.Store.ListLimitDefault = 100
	}
	if cfg.Store.ListLimitMax == 0 {
		cfg.Store.ListLimitMax = 1000
	}
	if cfg.PKDNS.RepublishIntervalSeconds == 0 {
		cfg.PKDNS.RepublishIntervalSeconds = 14400
	}
	if cfg.PKDNS.MaxRecordAgeSeconds == 0 {
		cfg.PKDNS.MaxRecordAgeSeconds = 3600
	}
	if cfg.PKDNS.MinDHTStorers == 0 {
		cfg.PKDNS.MinDHTStorers = 10
	}
	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = BlobBackendFilesystem
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// RepublishInterval is the PKDNS republisher's configured interval as
// a time.Duration.
func (c *Config) RepublishInterval() time.Duration {
	return time.Duration(c.PKDNS.RepublishIntervalSeconds) * time.Second
}

// MaxRecordAge is the PKDNS resolver cache's configured TTL as a
// time.Duration.
func (c *Config) MaxRecordAge() time.Duration {
	return time.Duration(c.PKDNS.MaxRecordAgeSeconds) * time.Second
}
