// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package requests owns the requests table: one row per client build
// request, created by the Request API and mutated by the Build Worker.
package requests

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Status is one of the requests.status enum values.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusError     Status = "error"
	StatusCompleted Status = "completed"
)

// ErrNotFound is returned when a request_id has no matching row.
var ErrNotFound = errors.New("requests: not found")

// ErrAlreadyTerminal is returned by TransitionRunning when the row is
// already completed or error; the caller should ack and drop the
// duplicate delivery rather than reprocess it.
var ErrAlreadyTerminal = errors.New("requests: already terminal")

// ErrStillRunning is returned by TransitionRunning when another worker
// holds the row within its visibility timeout; the caller should not
// ack, letting the bus redeliver later.
var ErrStillRunning = errors.New("requests: still running")

// Request is one row of the requests table.
type Request struct {
	RequestID   string
	Status      Status
	Try         int
	StartDate   time.Time
	LastDate    time.Time
	APIKey      string
	SourceIP    string
	CreditUsage int
	InputData   json.RawMessage
	Message     json.RawMessage

	// IdempotencyKey, when set, lets a retried POST /build with the same
	// key and value return the original request instead of creating a
	// duplicate.
	IdempotencyKey string
}

// Store is the capability the Request API and Build Worker depend on.
type Store interface {
	// Create inserts a new queued row. requestID must be unique.
	Create(ctx context.Context, req *Request) error

	// Get returns the current row, or ErrNotFound.
	Get(ctx context.Context, requestID string) (*Request, error)

	// FindByIdempotencyKey returns the row previously created for
	// (apiKey, key), or nil if none exists. Used at intake to make a
	// retried POST /build idempotent (spec §4.6).
	FindByIdempotencyKey(ctx context.Context, apiKey, key string) (*Request, error)

	// TransitionRunning atomically moves a row from queued (or a
	// running row whose LastDate is older than visibilityTimeout) to
	// running, incrementing Try, and returns the updated row. Returns
	// ErrAlreadyTerminal if the row is completed or error, and
	// ErrNotFound if it doesn't exist.
	TransitionRunning(ctx context.Context, requestID string, visibilityTimeout time.Duration) (*Request, error)

	// Complete marks a row completed with the given coverage message.
	Complete(ctx context.Context, requestID string, message json.RawMessage) error

	// Fail marks a row error with the given message.
	Fail(ctx context.Context, requestID string, message json.RawMessage) error

	// TerminalBefore returns the request IDs of completed or errored rows
	// whose LastDate is before cutoff, so a caller can remove their
	// output objects before deleting the rows themselves.
	TerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// DeleteBefore removes completed or errored rows whose LastDate is
	// before cutoff and returns the number of rows removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
