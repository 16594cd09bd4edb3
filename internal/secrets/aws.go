// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// Compile-time check to verify implements interface.
var _ Manager = (*AWSSecretsManager)(nil)

// AWSSecretsManager resolves secrets from AWS Secrets Manager. Secret names
// are passed through unmodified as Secrets Manager secret IDs.
type AWSSecretsManager struct {
	client *secretsmanager.SecretsManager
}

// NewAWSSecretsManager creates a Manager backed by AWS Secrets Manager,
// using the default credential chain (environment, shared config, or the
// instance/task role).
func NewAWSSecretsManager(ctx context.Context) (Manager, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: creating aws session: %w", err)
	}

	return &AWSSecretsManager{
		client: secretsmanager.New(sess),
	}, nil
}

func (s *AWSSecretsManager) GetSecretValue(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("secrets: fetching %q from aws secrets manager: %w", name, err)
	}

	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	if out.SecretBinary != nil {
		return string(out.SecretBinary), nil
	}

	return "", fmt.Errorf("secrets: %q has no value in aws secrets manager", name)
}
