// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sethvargo/go-retry"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*S3Blobstore)(nil)

// S3Blobstore implements Blobstore against an AWS S3 bucket. Every call
// is wrapped in exponential backoff with bounded attempts; 4xx responses
// other than 429 are treated as fatal, everything else (including
// timeouts) is retried.
type S3Blobstore struct {
	svc        *s3.S3
	bucket     string
	attempts   uint64
	baseDelay  time.Duration
	presignTTL time.Duration
}

// NewS3Blobstore creates an S3-backed Blobstore using the default AWS
// credential chain.
func NewS3Blobstore(ctx context.Context, cfg Config) (Blobstore, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("storage: creating aws session: %w", err)
	}

	return &S3Blobstore{
		svc:        s3.New(sess),
		bucket:     cfg.Bucket,
		attempts:   cfg.RetryAttempts,
		baseDelay:  cfg.RetryBaseDelay,
		presignTTL: cfg.PresignTTL,
	}, nil
}

func (s *S3Blobstore) backoff() retry.Backoff {
	b := retry.NewExponential(s.baseDelay)
	return retry.WithMaxRetries(s.attempts, b)
}

func (s *S3Blobstore) Put(ctx context.Context, key string, contents []byte) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(contents),
		})
		if err != nil {
			return classify(fmt.Errorf("storage: put %q: %w", key, err), err)
		}
		return nil
	})
}

func (s *S3Blobstore) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("storage: get %q: %w", key, ErrNotFound)
			}
			return classify(fmt.Errorf("storage: get %q: %w", key, err), err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(out.Body); err != nil {
			return fmt.Errorf("storage: reading %q: %w", key, err)
		}
		body = buf.Bytes()
		return nil
	})
	return body, err
}

func (s *S3Blobstore) Delete(ctx context.Context, key string) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return classify(fmt.Errorf("storage: delete %q: %w", key, err), err)
		}
		return nil
	})
}

func (s *S3Blobstore) Presign(ctx context.Context, key string) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("storage: presign %q: %w", key, err)
	}
	return url, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if ok := asAWSError(err, &aerr); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}

func asAWSError(err error, target *awserr.Error) bool {
	aerr, ok := err.(awserr.Error)
	if ok {
		*target = aerr
	}
	return ok
}

// classify wraps err as retryable unless it is a 4xx S3 error other than
// 429 (throttling), per the object store's retry policy.
func classify(wrapped error, original error) error {
	var aerr awserr.Error
	if asAWSError(original, &aerr) {
		if reqErr, ok := original.(awserr.RequestFailure); ok {
			status := reqErr.StatusCode()
			if status >= 400 && status < 500 && status != 429 {
				return wrapped
			}
		}
	}
	return retry.RetryableError(wrapped)
}
