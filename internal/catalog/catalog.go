// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package catalog

import (
	"context"
	"time"
)

// Constraints narrows find_covering to rows matching a request's identity
// requirements. A nil pointer field means "no constraint on this axis".
type Constraints struct {
	Nowcast        bool
	EnsembleMember *string
	StormName      *string
	Basin          *string
	StormYear      *int
	StormNumber    *int
	Advisory       *int
}

// UnlockFn releases a lock acquired by Catalog.Lock.
type UnlockFn func(ctx context.Context) error

// Catalog is the capability the rest of MetGet-Server depends on: it never
// depends on *Store directly, so a Memory fake can stand in for tests.
type Catalog interface {
	// Upsert inserts row, or if a row with the same family and
	// UniquenessKey already exists, updates its storage_key and accessed
	// timestamp only. Reports whether a new row was inserted.
	Upsert(ctx context.Context, row Row) (inserted bool, err error)

	// FindExact returns the row with the given family and uniqueness key,
	// or nil if none exists.
	FindExact(ctx context.Context, family Family, uniquenessKey string) (Row, error)

	// FindCovering returns candidate rows whose valid_time equals t,
	// filtered by c and ordered by forecast_cycle descending (newer
	// preferred) then tau ascending.
	FindCovering(ctx context.Context, family Family, t time.Time, c Constraints) ([]Row, error)

	// ListCycles returns every distinct forecast_cycle recorded for
	// family, ascending.
	ListCycles(ctx context.Context, family Family) ([]time.Time, error)

	// Lock acquires a named advisory lock for the duration of the
	// returned UnlockFn's lifetime, or ErrAlreadyLocked if another
	// holder has it.
	Lock(ctx context.Context, name string) (UnlockFn, error)
}
