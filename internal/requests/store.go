// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Compile-time check to verify PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is the PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Open creates a PostgresStore backed by the given connection pool.
func Open(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	if req.Status == "" {
		req.Status = StatusQueued
	}
	if req.InputData == nil {
		req.InputData = json.RawMessage(`{}`)
	}
	var idempotencyKey *string
	if req.IdempotencyKey != "" {
		idempotencyKey = &req.IdempotencyKey
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO requests (request_id, status, try, start_date, last_date, api_key, source_ip, credit_usage, input_data, message, idempotency_key)
		VALUES ($1, $2, 0, now(), now(), $3, $4, $5, $6, '{}', $7)`,
		req.RequestID, req.Status, req.APIKey, req.SourceIP, req.CreditUsage, req.InputData, idempotencyKey)
	if err != nil {
		return fmt.Errorf("requests: create %s: %w", req.RequestID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID string) (*Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT request_id, status, try, start_date, last_date, api_key, source_ip, credit_usage, input_data, message
		FROM requests WHERE request_id = $1`, requestID)

	var r Request
	if err := row.Scan(&r.RequestID, &r.Status, &r.Try, &r.StartDate, &r.LastDate, &r.APIKey, &r.SourceIP, &r.CreditUsage, &r.InputData, &r.Message); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("requests: get %s: %w", requestID, err)
	}
	return &r, nil
}

func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, apiKey, key string) (*Request, error) {
	if key == "" {
		return nil, nil
	}

	row := s.pool.QueryRow(ctx, `
		SELECT request_id, status, try, start_date, last_date, api_key, source_ip, credit_usage, input_data, message
		FROM requests WHERE api_key = $1 AND idempotency_key = $2`, apiKey, key)

	var r Request
	if err := row.Scan(&r.RequestID, &r.Status, &r.Try, &r.StartDate, &r.LastDate, &r.APIKey, &r.SourceIP, &r.CreditUsage, &r.InputData, &r.Message); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("requests: find by idempotency key: %w", err)
	}
	r.IdempotencyKey = key
	return &r, nil
}

func (s *PostgresStore) TransitionRunning(ctx context.Context, requestID string, visibilityTimeout time.Duration) (*Request, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE requests
		SET status = 'running', try = try + 1, last_date = now()
		WHERE request_id = $1
		  AND (status = 'queued' OR (status = 'running' AND last_date < now() - $2::interval))
		RETURNING request_id, status, try, start_date, last_date, api_key, source_ip, credit_usage, input_data, message`,
		requestID, visibilityTimeout.String())

	var r Request
	err := row.Scan(&r.RequestID, &r.Status, &r.Try, &r.StartDate, &r.LastDate, &r.APIKey, &r.SourceIP, &r.CreditUsage, &r.InputData, &r.Message)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("requests: transition %s: %w", requestID, err)
	}

	// The conditional update matched no row: distinguish terminal from
	// merely still in-flight with another worker.
	existing, getErr := s.Get(ctx, requestID)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Status == StatusCompleted || existing.Status == StatusError {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTerminal, existing.Status)
	}
	return nil, fmt.Errorf("%w: %s", ErrStillRunning, existing.Status)
}

func (s *PostgresStore) Complete(ctx context.Context, requestID string, message json.RawMessage) error {
	return s.setTerminal(ctx, requestID, StatusCompleted, message)
}

func (s *PostgresStore) Fail(ctx context.Context, requestID string, message json.RawMessage) error {
	return s.setTerminal(ctx, requestID, StatusError, message)
}

func (s *PostgresStore) TerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id FROM requests
		WHERE status IN ('completed', 'error') AND last_date < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("requests: terminal before %s: %w", cutoff, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("requests: terminal before %s: %w", cutoff, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM requests WHERE status IN ('completed', 'error') AND last_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("requests: delete before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) setTerminal(ctx context.Context, requestID string, status Status, message json.RawMessage) error {
	if message == nil {
		message = json.RawMessage(`{}`)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE requests SET status = $2, last_date = now(), message = $3 WHERE request_id = $1`,
		requestID, status, message)
	if err != nil {
		return fmt.Errorf("requests: set %s to %s: %w", requestID, status, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
