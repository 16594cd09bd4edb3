// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Compile-time check to verify Store implements Catalog.
var _ Catalog = (*Store)(nil)

// Store is the PostgreSQL-backed Catalog implementation. One table per
// Family holds that family's rows; reads and writes are scoped to the
// table a row's family maps to.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a Store backed by the given connection pool.
func Open(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity to the backing database. Satisfies the
// interface pkg/server.HandleHealthz probes for.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("catalog: acquiring connection: %w", err)
	}
	defer conn.Release()
	return conn.Conn().Ping(ctx)
}

func (s *Store) Upsert(ctx context.Context, row Row) (bool, error) {
	table, err := row.Family().tableName()
	if err != nil {
		return false, err
	}

	var insertedCols []string
	var insertedVals []interface{}
	cols := []string{"uniqueness_key", "forecast_cycle", "valid_time", "tau", "storage_key", "accessed", "payload_meta"}
	vals := []interface{}{row.UniquenessKey(), row.ForecastCycle(), row.ValidTime(), row.Tau(), row.StorageKey(), time.Now().UTC(), payloadMetaOrEmpty(row.PayloadMeta())}

	switch r := row.(type) {
	case *EnsembleRow:
		cols = append(cols, "ensemble_member")
		vals = append(vals, r.EnsembleMember)
	case *TropicalRow:
		cols = append(cols, "storm_name", "basin", "storm_year", "storm_number", "advisory", "ensemble_member")
		vals = append(vals, r.StormName, r.Basin, r.StormYear, r.StormNumber, r.Advisory, r.EnsembleMember)
	}
	insertedCols, insertedVals = cols, vals

	placeholders := make([]string, len(insertedVals))
	for i := range insertedVals {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (uniqueness_key) DO UPDATE SET
			storage_key = EXCLUDED.storage_key,
			accessed = EXCLUDED.accessed
		RETURNING (xmax = 0)
	`, table, join(insertedCols), join(placeholders))

	var inserted bool
	if err := s.pool.QueryRow(ctx, query, insertedVals...).Scan(&inserted); err != nil {
		return false, fmt.Errorf("catalog: upsert into %s: %w", table, err)
	}
	return inserted, nil
}

func (s *Store) FindExact(ctx context.Context, family Family, uniquenessKey string) (Row, error) {
	table, err := family.tableName()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE uniqueness_key = $1`, selectColumns(family), table)
	rows, err := s.pool.Query(ctx, query, uniquenessKey)
	if err != nil {
		return nil, fmt.Errorf("catalog: find_exact in %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	return scanRow(family, rows)
}

func (s *Store) FindCovering(ctx context.Context, family Family, t time.Time, c Constraints) ([]Row, error) {
	table, err := family.tableName()
	if err != nil {
		return nil, err
	}

	where := []string{"valid_time = $1"}
	args := []interface{}{t}

	if c.Nowcast {
		where = append(where, "tau = 0")
	}
	if c.EnsembleMember != nil {
		args = append(args, *c.EnsembleMember)
		where = append(where, fmt.Sprintf("ensemble_member = $%d", len(args)))
	}
	if c.StormName != nil {
		args = append(args, *c.StormName)
		where = append(where, fmt.Sprintf("storm_name = $%d", len(args)))
	}
	if c.Basin != nil {
		args = append(args, *c.Basin)
		where = append(where, fmt.Sprintf("basin = $%d", len(args)))
	}
	if c.StormYear != nil {
		args = append(args, *c.StormYear)
		where = append(where, fmt.Sprintf("storm_year = $%d", len(args)))
	}
	if c.StormNumber != nil {
		args = append(args, *c.StormNumber)
		where = append(where, fmt.Sprintf("storm_number = $%d", len(args)))
	}
	if c.Advisory != nil {
		args = append(args, *c.Advisory)
		where = append(where, fmt.Sprintf("advisory = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY forecast_cycle DESC, tau ASC, storage_key ASC
	`, selectColumns(family), table, join(where, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: find_covering in %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(family, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) ListCycles(ctx context.Context, family Family) ([]time.Time, error) {
	table, err := family.tableName()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT DISTINCT forecast_cycle FROM %s ORDER BY forecast_cycle ASC`, table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list_cycles in %s: %w", table, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ErrAlreadyLocked is returned by Lock when another holder already owns
// the named lock.
var ErrAlreadyLocked = errors.New("catalog: lock already in use")

func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// Lock acquires a session-level PostgreSQL advisory lock named by name,
// pinned to a single connection checked out from the pool for the
// lifetime of the lock. It does not block: if the lock is already held,
// ErrAlreadyLocked is returned immediately.
func (s *Store) Lock(ctx context.Context, name string) (UnlockFn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquiring connection for lock %q: %w", name, err)
	}

	var got bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, lockKey(name)).Scan(&got); err != nil {
		conn.Release()
		return nil, fmt.Errorf("catalog: pg_try_advisory_lock %q: %w", name, err)
	}
	if !got {
		conn.Release()
		return nil, ErrAlreadyLocked
	}

	unlocked := false
	return func(ctx context.Context) error {
		if unlocked {
			return nil
		}
		unlocked = true
		defer conn.Release()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, lockKey(name)); err != nil {
			return fmt.Errorf("catalog: pg_advisory_unlock %q: %w", name, err)
		}
		return nil
	}, nil
}

func payloadMetaOrEmpty(m json.RawMessage) json.RawMessage {
	if m == nil {
		return json.RawMessage(`{}`)
	}
	return m
}

func join(parts []string, sep ...string) string {
	s := ", "
	if len(sep) > 0 {
		s = sep[0]
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += s
		}
		out += p
	}
	return out
}

// selectColumns returns the column list (in scanRow's expected order) for
// a family's table shape.
func selectColumns(family Family) string {
	base := "forecast_cycle, valid_time, tau, storage_key, accessed, payload_meta"
	switch family.kind() {
	case kindEnsemble:
		return base + ", ensemble_member"
	case kindTropical:
		return base + ", storm_name, basin, storm_year, storm_number, advisory, ensemble_member"
	default:
		return base
	}
}

// rowScanner is satisfied by both pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(family Family, rs rowScanner) (Row, error) {
	var forecastCycle, validTime, accessed time.Time
	var tau int
	var storageKey string
	var payloadMeta []byte

	switch family.kind() {
	case kindEnsemble:
		var member string
		if err := rs.Scan(&forecastCycle, &validTime, &tau, &storageKey, &accessed, &payloadMeta, &member); err != nil {
			return nil, fmt.Errorf("catalog: scan ensemble row: %w", err)
		}
		r := NewEnsembleRow(family, forecastCycle, validTime, member, storageKey, payloadMeta)
		r.accessed = accessed
		return r, nil
	case kindTropical:
		var stormName, basin, member string
		var stormYear, stormNumber, advisory int
		if err := rs.Scan(&forecastCycle, &validTime, &tau, &storageKey, &accessed, &payloadMeta, &stormName, &basin, &stormYear, &stormNumber, &advisory, &member); err != nil {
			return nil, fmt.Errorf("catalog: scan tropical row: %w", err)
		}
		r := NewTropicalRow(family, forecastCycle, validTime, stormName, basin, stormYear, stormNumber, advisory, member, storageKey, payloadMeta)
		r.accessed = accessed
		return r, nil
	default:
		if err := rs.Scan(&forecastCycle, &validTime, &tau, &storageKey, &accessed, &payloadMeta); err != nil {
			return nil, fmt.Errorf("catalog: scan deterministic row: %w", err)
		}
		r := NewDeterministicRow(family, forecastCycle, validTime, storageKey, payloadMeta)
		r.accessed = accessed
		return r, nil
	}
}
