// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package config defines the top-level, envconfig-bound configuration
// composed by every MetGet-Server binary and the plumbing that resolves
// it against a secret manager.
package config

import (
	"context"
	"fmt"
	"time"

	kenvconfig "github.com/kelseyhightower/envconfig"

	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/credit"
	"github.com/thewaterinstitute/metget-server/internal/download"
	"github.com/thewaterinstitute/metget-server/internal/envconfig"
	"github.com/thewaterinstitute/metget-server/internal/secrets"
	"github.com/thewaterinstitute/metget-server/internal/storage"
	"github.com/thewaterinstitute/metget-server/pkg/observability"
)

// Config is the full process configuration. Individual binaries only use
// the sections relevant to them, but all binaries load the same struct so
// a single set of environment variables configures the whole system.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	Database      DatabaseConfig
	Storage       storage.Config
	Bus           bus.Config
	Credit        credit.Config
	Secrets       secrets.Config
	Observability observability.Config
	Download      download.Config

	// MetricsPort, when set, is where the observability exporter's
	// /metrics scrape endpoint is served.
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// RequestRetention is how long completed/errored request rows and
	// their output objects are kept before cleanup reclaims them.
	RequestRetention time.Duration `envconfig:"REQUEST_RETENTION" default:"720h"`

	// CleanupTimeout bounds how long a single cmd/cleanup invocation may
	// run before its delete pass is abandoned.
	CleanupTimeout time.Duration `envconfig:"CLEANUP_TIMEOUT" default:"10m"`

	// MaxBuildAttempts bounds how many times the build worker retries a
	// request before it is marked permanently failed.
	MaxBuildAttempts int `envconfig:"MAX_BUILD_ATTEMPTS" default:"3"`

	// VisibilityTimeout is how long a running row is treated as
	// in-flight before another worker may claim it as abandoned.
	VisibilityTimeout time.Duration `envconfig:"VISIBILITY_TIMEOUT" default:"10m"`

	// BuildDeadline is the soft per-request deadline a build worker
	// enforces on one envelope; exceeding it transitions the row to
	// error rather than leaving the process blocked indefinitely.
	BuildDeadline time.Duration `envconfig:"BUILD_DEADLINE" default:"10m"`

	// BlobCacheSize bounds the build worker's in-process LRU cache of
	// fetched blobs, shared across domains within one request.
	BlobCacheSize int `envconfig:"BLOB_CACHE_SIZE" default:"256"`

	// PresignTTL bounds how long a /check response's download URL stays
	// valid.
	PresignTTL time.Duration `envconfig:"PRESIGN_TTL" default:"24h"`

	// RateLimitPerMinute bounds how many /build requests a single API key
	// may make per minute before the Request API returns 429.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// MaintenanceEnabled, when true, makes the Request API reject every
	// request with 429.
	MaintenanceEnabled bool `envconfig:"MAINTENANCE_MODE" default:"false"`
}

// MaintenanceMode reports whether the Request API should reject build
// traffic. Satisfies the interface middleware.ProcessMaintenance expects.
func (c *Config) MaintenanceMode() bool {
	return c.MaintenanceEnabled
}

// Load builds the secret manager first (so SECRET_MANAGER itself can't be
// a secret ref), then processes the full Config through envconfig,
// pre-resolving any "secret://" values via that manager.
func Load(ctx context.Context) (*Config, error) {
	// The secret manager type selection can't itself come from a secret,
	// so it's read directly rather than through envconfig.Process.
	var secretsCfg secrets.Config
	if err := kenvconfig.Process("", &secretsCfg); err != nil {
		return nil, fmt.Errorf("config: resolving secret manager type: %w", err)
	}

	sm, err := secrets.ManagerFor(ctx, secretsCfg.ManagerType)
	if err != nil {
		return nil, fmt.Errorf("config: building secret manager: %w", err)
	}
	sm = secrets.WrapCacher(ctx, sm, secretsCfg.CacheTTL)

	var cfg Config
	if err := envconfig.Process(ctx, &cfg, sm); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}
	cfg.Secrets = secretsCfg

	return &cfg, nil
}
