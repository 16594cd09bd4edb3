// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package envconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, name string) (string, error) {
	return f.values[name], nil
}

type testSpec struct {
	Foo string `envconfig:"ENVCONFIG_TEST_FOO"`
}

func TestProcess_PlainValue(t *testing.T) {
	t.Setenv("ENVCONFIG_TEST_FOO", "bar")

	var spec testSpec
	require.NoError(t, Process(context.Background(), &spec, nil))
	require.Equal(t, "bar", spec.Foo)
}

func TestProcess_SecretRef(t *testing.T) {
	t.Setenv("ENVCONFIG_TEST_FOO", "secret://db/password")
	sm := &fakeSecrets{values: map[string]string{"db/password": "resolved"}}

	var spec testSpec
	require.NoError(t, Process(context.Background(), &spec, sm))
	require.Equal(t, "resolved", spec.Foo)
}

func TestProcess_SecretRefWithoutManager(t *testing.T) {
	t.Setenv("ENVCONFIG_TEST_FOO", "secret://db/password")

	var spec testSpec
	require.Error(t, Process(context.Background(), &spec, nil))
}
