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

import "fmt"

// ValidationLevel distinguishes a hard failure from an advisory
// warning.
type ValidationLevel string

const (
	LevelError   ValidationLevel = "error"
	LevelWarning ValidationLevel = "warning"
)

// ValidationError is one finding from ValidateConfiguration.
type ValidationError struct {
	Field   string
	Message string
	Level   ValidationLevel
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Level)
}

// ValidateConfiguration checks cfg against the recognized
// values, returning every finding (both hard errors and advisory
// warnings) rather than stopping at the first. Callers that want to
// fail fast should filter for LevelError.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.StorageDir == "" {
		errs = append(errs, ValidationError{"storage_dir", "must not be empty", LevelError})
	}

	switch cfg.SignupMode {
	case SignupOpen, SignupTokenRequired:
	default:
		errs = append(errs, ValidationError{"signup_mode", fmt.Sprintf("unrecognized value %q", cfg.SignupMode), LevelError})
	}

	if cfg.DefaultQuotaBytes < 0 {
		errs = append(errs, ValidationError{"default_quota_bytes", "must not be negative", LevelError})
	}

	if cfg.Store.ListLimitDefault <= 0 {
		errs = append(errs, ValidationError{"list_limit_default", "must be positive", LevelError})
	}
	if cfg.Store.ListLimitMax < cfg.Store.ListLimitDefault {
		errs = append(errs, ValidationError{"list_limit_max", "must be >= list_limit_default", LevelError})
	}

	if cfg.PKDNS.RepublishIntervalSeconds <= 0 {
		errs = append(errs, ValidationError{"republish_interval_seconds", "must be positive", LevelError})
	}
	if cfg.PKDNS.MaxRecordAgeSeconds <= 0 {
		errs = append(errs, ValidationError{"max_record_age_seconds", "must be positive", LevelError})
	}
	if cfg.PKDNS.MinDHTStorers <= 0 {
		errs = append(errs, ValidationError{"min_dht_storers", "must be positive", LevelError})
	}
	if len(cfg.PKDNS.Relays) == 0 {
		errs = append(errs, ValidationError{"relays", "no relays configured; publishes rely on DHT durability alone", LevelWarning})
	}

	switch cfg.Blob.Backend {
	case BlobBackendFilesystem, BlobBackendInMemory:
	case BlobBackendGoogleBucket:
		if cfg.Blob.GoogleBucket == "" {
			errs = append(errs, ValidationError{"blob.google_bucket", "required when blob.backend is google_bucket", LevelError})
		}
	default:
		errs = append(errs, ValidationError{"blob.backend", fmt.Sprintf("unrecognized value %q", cfg.Blob.Backend), LevelError})
	}

	return errs
}
