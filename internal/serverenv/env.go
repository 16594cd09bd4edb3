// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package serverenv defines the latent backends shared by every
// MetGet-Server process: the catalog store, object store, message bus,
// credit ledger, and secret manager.
package serverenv

import (
	"context"
	"fmt"
	"os"

	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/credit"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/secrets"
	"github.com/thewaterinstitute/metget-server/internal/storage"
)

const (
	portEnvVar  = "PORT"
	defaultPort = "8080"
	// SecretPostfix designates that an environment variable ending with
	// this suffix names a key to resolve through the secret manager.
	SecretPostfix = "_SECRET"
)

// ServerEnv represents latent backend configuration shared by the API,
// downloader, and build worker processes.
type ServerEnv struct {
	port string

	catalog       catalog.Catalog
	blobstore     storage.Blobstore
	bus           bus.Bus
	ledger        credit.Source
	requests      requests.Store
	secretManager secrets.Manager // optional

	overrides map[string]string
}

// Option defines a function that configures a ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options applied in order.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{port: defaultPort}

	logger := logging.FromContext(ctx)

	if override := os.Getenv(portEnvVar); override != "" {
		env.port = override
	}
	logger.Infof("using port %v (override with $%v)", env.port, portEnvVar)

	for _, f := range opts {
		env = f(env)
	}

	return env
}

// WithCatalog installs the catalog store.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.catalog = c
		return s
	}
}

// WithBlobstore installs the object store backend.
func WithBlobstore(b storage.Blobstore) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.blobstore = b
		return s
	}
}

// WithBus installs the message bus backend.
func WithBus(b bus.Bus) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.bus = b
		return s
	}
}

// WithLedger installs the credit ledger.
func WithLedger(l credit.Source) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.ledger = l
		return s
	}
}

// WithRequests installs the request-tracking store.
func WithRequests(r requests.Store) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.requests = r
		return s
	}
}

// WithSecretManager installs the secret manager used to resolve
// secret:// indirected configuration values.
func WithSecretManager(sm secrets.Manager) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.secretManager = sm
		return s
	}
}

// WithPort overrides the port resolved from the environment. Intended
// for binaries that resolve their own config.Config and want ServerEnv
// to agree with it rather than re-reading $PORT independently.
func WithPort(port string) Option {
	return func(s *ServerEnv) *ServerEnv {
		if port != "" {
			s.port = port
		}
		return s
	}
}

// Port returns the port that a server should listen on.
func (s *ServerEnv) Port() string {
	return s.port
}

// Catalog returns the catalog store, or nil if one was not installed.
func (s *ServerEnv) Catalog() catalog.Catalog {
	return s.catalog
}

// Blobstore returns the object store backend, or nil if one was not
// installed.
func (s *ServerEnv) Blobstore() storage.Blobstore {
	return s.blobstore
}

// Bus returns the message bus backend, or nil if one was not installed.
func (s *ServerEnv) Bus() bus.Bus {
	return s.bus
}

// Ledger returns the credit ledger, or nil if one was not installed.
func (s *ServerEnv) Ledger() credit.Source {
	return s.ledger
}

// Requests returns the request-tracking store, or nil if one was not
// installed.
func (s *ServerEnv) Requests() requests.Store {
	return s.requests
}

// SecretManager returns the installed secret manager, or nil.
func (s *ServerEnv) SecretManager() secrets.Manager {
	return s.secretManager
}

func (s *ServerEnv) getSecretValue(ctx context.Context, envVar string) (string, error) {
	logger := logging.FromContext(ctx)

	eVal := os.Getenv(envVar)
	if s.secretManager == nil {
		logger.Warnf("resolving %v from local environment variable, no secret manager configured", envVar)
		return eVal, nil
	}

	secretVar := envVar + SecretPostfix
	secretLocation := os.Getenv(secretVar)
	if secretLocation == "" {
		logger.Debugf("resolving %v from local environment value, %v is unset", envVar, secretVar)
		return eVal, nil
	}

	plaintext, err := s.secretManager.GetSecretValue(ctx, secretLocation)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret value for %v: %w", secretLocation, err)
	}
	logger.Infof("loaded %v from secret %v", envVar, secretLocation)
	return plaintext, nil
}

// ResolveSecretEnv resolves a local environment variable by name, unless
// the same name with a "_SECRET" postfix is set, in which case the value
// is resolved as a key into the installed secret manager.
func (s *ServerEnv) ResolveSecretEnv(ctx context.Context, envVar string) (string, error) {
	if val, ok := s.overrides[envVar]; ok {
		return val, nil
	}
	return s.getSecretValue(ctx, envVar)
}

// Set overrides the usual lookup for name so that value is always returned.
// Intended for tests.
func (s *ServerEnv) Set(name, value string) {
	if s.overrides == nil {
		s.overrides = map[string]string{}
	}
	s.overrides[name] = value
}

// Close releases any resources held by the installed backends.
func (s *ServerEnv) Close(ctx context.Context) error {
	if closer, ok := s.catalog.(interface{ Close() }); ok {
		closer.Close()
	}
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}
