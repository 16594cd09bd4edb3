// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package secrets

import (
	"context"
	"fmt"
	"os"
)

// Compile-time check to verify implements interface.
var _ Manager = (*envManager)(nil)

// envManager resolves secrets directly from environment variables, named
// after the secret itself. It is the default manager for local development
// and single-host deployments where secret://NAME references an env var
// rather than a remote store.
type envManager struct{}

// NewEnv creates a Manager backed by the process environment.
func NewEnv(ctx context.Context) (Manager, error) {
	return &envManager{}, nil
}

func (m *envManager) GetSecretValue(ctx context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("secrets: environment variable %q is not set", name)
	}
	return v, nil
}
