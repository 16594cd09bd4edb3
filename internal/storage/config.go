// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import "time"

// BackendType identifies a Blobstore implementation.
type BackendType string

const (
	BackendTypeS3         BackendType = "S3"
	BackendTypeFilesystem BackendType = "FILESYSTEM"
	BackendTypeMemory     BackendType = "MEMORY"
)

// Config is the envconfig-bound configuration for the object store.
type Config struct {
	Backend        BackendType   `envconfig:"STORAGE_BACKEND" default:"S3"`
	Bucket         string        `envconfig:"STORAGE_BUCKET"`
	Root           string        `envconfig:"STORAGE_ROOT" default:"/tmp/metget"`
	Region         string        `envconfig:"AWS_REGION" default:"us-east-1"`
	PresignTTL     time.Duration `envconfig:"STORAGE_PRESIGN_TTL" default:"168h"`
	RetryAttempts  uint64        `envconfig:"STORAGE_RETRY_ATTEMPTS" default:"5"`
	RetryBaseDelay time.Duration `envconfig:"STORAGE_RETRY_BASE_DELAY" default:"250ms"`
}
