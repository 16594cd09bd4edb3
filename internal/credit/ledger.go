// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package credit is the per-key quota ledger: every accepted /build
// request debits credit_usage against the key's credit_limit, atomically
// at the database so concurrent API replicas never overspend a key.
package credit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Config controls whether debits are enforced at all.
type Config struct {
	EnforceLimits bool `envconfig:"ENFORCE_CREDIT_LIMITS" default:"true"`
}

// Source is the capability the Request API depends on, satisfied by both
// *Ledger and *Memory.
type Source interface {
	Authorize(ctx context.Context, apiKey string) (Authorization, error)
	Debit(ctx context.Context, apiKey string, amount int) error
}

// Authorization is the read-only view of a key's standing.
type Authorization struct {
	Enabled     bool
	Unlimited   bool
	Remaining   int
	Permissions map[string]bool
}

// Ledger implements the Credit Ledger component against the api_keys
// table.
type Ledger struct {
	pool    *pgxpool.Pool
	enforce bool
}

// New creates a Ledger backed by pool. When cfg.EnforceLimits is false,
// Debit always succeeds without touching the row.
func New(pool *pgxpool.Pool, cfg Config) *Ledger {
	return &Ledger{pool: pool, enforce: cfg.EnforceLimits}
}

// Authorize reads a key's current standing.
func (l *Ledger) Authorize(ctx context.Context, apiKey string) (Authorization, error) {
	var enabled bool
	var limit, remaining int
	var expiration *time.Time
	var permissionsJSON []byte

	row := l.pool.QueryRow(ctx, `
		SELECT enabled, credit_limit, remaining, expiration, permissions
		FROM api_keys
		WHERE key = $1
	`, apiKey)

	if err := row.Scan(&enabled, &limit, &remaining, &expiration, &permissionsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return Authorization{}, ErrUnknownKey
		}
		return Authorization{}, fmt.Errorf("credit: authorize %q: %w", apiKey, err)
	}

	if expiration != nil && time.Now().UTC().After(*expiration) {
		enabled = false
	}

	permissions := map[string]bool{}
	if len(permissionsJSON) > 0 {
		if err := json.Unmarshal(permissionsJSON, &permissions); err != nil {
			return Authorization{}, fmt.Errorf("credit: decoding permissions for %q: %w", apiKey, err)
		}
	}

	return Authorization{
		Enabled:     enabled,
		Unlimited:   limit < 0,
		Remaining:   remaining,
		Permissions: permissions,
	}, nil
}

// ErrUnknownKey is returned when no api_keys row matches the key.
var ErrUnknownKey = fmt.Errorf("credit: unknown api key")

// ErrDenied is returned by Debit when the key lacks sufficient credit.
var ErrDenied = fmt.Errorf("credit: denied")

// Debit atomically decrements remaining by amount, never below zero
// unless the key is unlimited (credit_limit = -1). If enforcement is
// disabled, Debit is a no-op that always succeeds.
func (l *Ledger) Debit(ctx context.Context, apiKey string, amount int) error {
	if !l.enforce {
		return nil
	}

	tag, err := l.pool.Exec(ctx, `
		UPDATE api_keys
		SET remaining = remaining - $2
		WHERE key = $1
		  AND enabled = true
		  AND (credit_limit = -1 OR remaining >= $2)
	`, apiKey, amount)
	if err != nil {
		return fmt.Errorf("credit: debit %q: %w", apiKey, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDenied
	}
	return nil
}
