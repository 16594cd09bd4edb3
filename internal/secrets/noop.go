// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package secrets

import "context"

// Compile-time check to verify implements interface.
var _ Manager = (*Noop)(nil)

// Noop is a secret manager that returns the secret name unchanged. It exists
// for tests and local runs where no indirection through secret:// is needed.
type Noop struct{}

// NewNoop creates a Manager that performs no lookup.
func NewNoop(ctx context.Context) (Manager, error) {
	return &Noop{}, nil
}

func (s *Noop) GetSecretValue(ctx context.Context, name string) (string, error) {
	return name, nil
}
