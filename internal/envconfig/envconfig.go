// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package envconfig resolves configuration and secret values from environment
// variables. This works by transforming the environment variables and then
// invoking github.com/kelseyhightower/envconfig to map the environment
// variables into a provided struct.
//
// If an environment variable begins with "secret://", the remaining string bits
// are used to resolve the value in the provided secrets.Manager. For example:
//
//     FOO=secret://foo/bar/baz => manager.GetSecretValue(ctx, "foo/bar/baz")
//
// The environment variables are rewritten to be the secret value, but this is
// only visible within the running process and any child processes.
//
// If an environment variable secret ends with "?target=file" then the resulting
// secret value is written to SECRETS_DIR and the environment variable is
// updated to be the local path to that file.
package envconfig

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kenvconfig "github.com/kelseyhightower/envconfig"

	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/secrets"
)

const (
	// SecretPrefix is the prefix, that if the value of an env var starts with
	// will be resolved through the configured secret store.
	SecretPrefix = "secret://"

	// FileSuffix is the suffix to use, if this secret path should be written to a file.
	// only interpreted on environment variable values that start w/ secret://
	FileSuffix = "?target=file"
)

// BaseConfig is the default base configuration.
type BaseConfig struct {
	SecretsDir string `envconfig:"SECRETS_DIR" default:"/var/run/secrets"`
}

// Process resolves spec's envconfig tags, pre-resolving any "secret://"
// values through sm first. sm may be nil if no config uses secret refs.
func Process(ctx context.Context, spec interface{}, sm secrets.Manager) error {
	logger := logging.FromContext(ctx)

	var config BaseConfig
	if err := kenvconfig.Process("", &config); err != nil {
		return fmt.Errorf("failed to process base config: %w", err)
	}

	if err := resolveSecrets(ctx, sm, config.SecretsDir); err != nil {
		return err
	}

	if err := kenvconfig.Process("", spec); err != nil {
		return fmt.Errorf("failed to process given config: %w", err)
	}
	logger.Infof("loaded environment")
	return nil
}

func resolveSecrets(ctx context.Context, sm secrets.Manager, dir string) error {
	logger := logging.FromContext(ctx)
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			continue
		}

		envName, secretRef := parts[0], parts[1]
		if !strings.HasPrefix(secretRef, SecretPrefix) {
			continue
		}

		if sm == nil {
			return fmt.Errorf("environment requests secrets, but no secret manager is configured")
		}

		secretRef = strings.TrimPrefix(secretRef, SecretPrefix)

		toFile := false
		if strings.HasSuffix(secretRef, FileSuffix) {
			toFile = true
			secretRef = strings.TrimSuffix(secretRef, FileSuffix)
		}

		logger.Infof("resolving secret value for %q (toFile=%t)", envName, toFile)

		secretVal, err := sm.GetSecretValue(ctx, secretRef)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", secretRef, err)
		}

		if toFile {
			if err := ensureSecureDir(dir); err != nil {
				return err
			}

			secretFilePath := filepath.Join(dir, filenameForSecret(envName+"."+secretRef))
			if err := os.WriteFile(secretFilePath, []byte(secretVal), 0600); err != nil {
				return fmt.Errorf("failed to write secret file for %q: %w", envName, err)
			}

			logger.Infof("wrote secret file for %v", envName)
			secretVal = secretFilePath
		}

		os.Setenv(envName, secretVal)
	}

	return nil
}

func filenameForSecret(name string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(name)))
}

func ensureSecureDir(dir string) error {
	stat, err := os.Stat(dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to check if secure directory %q exists: %w", dir, err)
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create secure directory %q: %w", dir, err)
		}
		return nil
	}
	if stat.Mode().Perm() != os.FileMode(0700) {
		return fmt.Errorf("secure directory %q exists and is not restricted %v", dir, stat.Mode())
	}
	return nil
}
