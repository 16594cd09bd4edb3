// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package secrets defines a minimum abstract interface for a secret manager.
// Allows for a different implementation to be bound within serverenv.ServerEnv.
package secrets

import (
	"context"
	"fmt"
	"time"
)

// ManagerType represents a type of secret manager.
type ManagerType string

const (
	ManagerTypeEnv  ManagerType = "ENV"
	ManagerTypeAWS  ManagerType = "AWS_SECRETS_MANAGER"
	ManagerTypeNoop ManagerType = "NOOP"
)

// Config represents the config for a secret manager.
type Config struct {
	ManagerType ManagerType   `envconfig:"SECRET_MANAGER" default:"ENV"`
	CacheTTL    time.Duration `envconfig:"SECRET_CACHE_TTL" default:"5m"`
}

// Manager defines the minimum shared functionality for a secret manager used
// by this application.
type Manager interface {
	GetSecretValue(ctx context.Context, name string) (string, error)
}

// ManagerFunc builds a Manager, or an error if construction failed.
type ManagerFunc func(ctx context.Context) (Manager, error)

// ManagerFor returns the secret manager for the given type, or an error if
// one does not exist.
func ManagerFor(ctx context.Context, typ ManagerType) (Manager, error) {
	switch typ {
	case ManagerTypeAWS:
		return NewAWSSecretsManager(ctx)
	case ManagerTypeNoop:
		return NewNoop(ctx)
	case ManagerTypeEnv, "":
		return NewEnv(ctx)
	}

	return nil, fmt.Errorf("unknown secret manager type: %v", typ)
}
