package core

// Relational store adapter: a pgx connection pool, a migration runner, the
// bulk insert-with-ignore primitive every commit handler uses, and the
// watermark table. Batch commits and watermark advances share one
// transaction so a cancelled commit either fully applies or not at all.

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DBTX is the subset of pgx both a pool and a transaction satisfy; commit
// handlers and queries are written against it so tests can substitute an
// in-memory fake.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CommitStore is what the pipeline runtime needs from the store: watermark
// reads and atomic batch+watermark commits.
type CommitStore interface {
	LoadWatermark(ctx context.Context, pipeline string) (Watermark, bool, error)
	CommitBatch(ctx context.Context, wm Watermark, commit func(context.Context, DBTX) (int64, error)) (int64, error)
}

// Store is the Postgres-backed implementation.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewStore opens a bounded connection pool and verifies connectivity.
func NewStore(ctx context.Context, databaseURL string, maxConns int, log *logrus.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, Errorf(Configuration, "parse DATABASE_URL: %v", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, NewError(StoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, NewError(StoreUnavailable, err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Pool exposes the underlying pool for read-side consumers.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// RunMigrations applies embedded migrations in filename order, recording
// applied versions in schema_migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`); err != nil {
		return NewError(StoreUnavailable, err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, name).Scan(&applied)
		if err != nil {
			return NewError(StoreUnavailable, err)
		}
		if applied {
			continue
		}
		sqlText, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return NewError(StoreUnavailable, err)
		}
		if _, err := tx.Exec(ctx, string(sqlText)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return NewError(StoreUnavailable, err)
		}
		s.log.WithField("migration", name).Info("applied migration")
	}
	return nil
}

// LoadWatermark reads a pipeline's watermark; ok is false when the pipeline
// has never committed.
func (s *Store) LoadWatermark(ctx context.Context, pipeline string) (Watermark, bool, error) {
	var wm Watermark
	err := s.pool.QueryRow(ctx,
		`SELECT pipeline, epoch_hi_inclusive, checkpoint_hi_inclusive, tx_hi, timestamp_ms_hi_inclusive
		 FROM watermarks WHERE pipeline = $1`, pipeline).
		Scan(&wm.Pipeline, &wm.EpochHiInclusive, &wm.CheckpointHiInclusive, &wm.TxHi, &wm.TimestampMsHiInclusive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Watermark{Pipeline: pipeline, CheckpointHiInclusive: -1}, false, nil
	}
	if err != nil {
		return wm, false, NewError(StoreUnavailable, err)
	}
	return wm, true, nil
}

// CommitBatch runs commit inside a transaction and advances the watermark in
// the same transaction. GREATEST keeps the watermark monotone even if an
// older batch is retried after a newer one landed.
func (s *Store) CommitBatch(ctx context.Context, wm Watermark,
	commit func(context.Context, DBTX) (int64, error)) (int64, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, NewError(StoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	inserted, err := commit(ctx, tx)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO watermarks (pipeline, epoch_hi_inclusive, checkpoint_hi_inclusive, tx_hi, timestamp_ms_hi_inclusive)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (pipeline) DO UPDATE SET
			epoch_hi_inclusive = GREATEST(watermarks.epoch_hi_inclusive, EXCLUDED.epoch_hi_inclusive),
			checkpoint_hi_inclusive = GREATEST(watermarks.checkpoint_hi_inclusive, EXCLUDED.checkpoint_hi_inclusive),
			tx_hi = GREATEST(watermarks.tx_hi, EXCLUDED.tx_hi),
			timestamp_ms_hi_inclusive = GREATEST(watermarks.timestamp_ms_hi_inclusive, EXCLUDED.timestamp_ms_hi_inclusive)`,
		wm.Pipeline, wm.EpochHiInclusive, wm.CheckpointHiInclusive, wm.TxHi, wm.TimestampMsHiInclusive); err != nil {
		return 0, classifyPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, NewError(StoreUnavailable, err)
	}
	return inserted, nil
}

// maxInsertParams bounds one statement below Postgres's 65535 bind limit.
const maxInsertParams = 60000

// bulkInsertIgnore inserts rows into table with ON CONFLICT DO NOTHING and
// returns the number actually inserted (duplicates count as zero). Rows are
// chunked so no statement exceeds the bind-parameter limit.
func bulkInsertIgnore(ctx context.Context, db DBTX, table string, columns []string, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	perRow := len(columns)
	chunkRows := maxInsertParams / perRow
	if chunkRows < 1 {
		chunkRows = 1
	}

	var total int64
	for start := 0; start < len(rows); start += chunkRows {
		end := start + chunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO ")
		sb.WriteString(table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(columns, ", "))
		sb.WriteString(") VALUES ")

		args := make([]any, 0, len(chunk)*perRow)
		for i, row := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j := 0; j < perRow; j++ {
				if j > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", i*perRow+j+1)
			}
			sb.WriteByte(')')
			args = append(args, row.Values()...)
		}
		sb.WriteString(" ON CONFLICT DO NOTHING")

		tag, err := db.Exec(ctx, sb.String(), args...)
		if err != nil {
			return total, classifyPgError(err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// InsertRows is the exported bulk-insert entry for non-pipeline writers
// (snapshots, reference data).
func (s *Store) InsertRows(ctx context.Context, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return bulkInsertIgnore(ctx, s.pool, rows[0].Table(), rows[0].Columns(), rows)
}

// IsUniqueViolation reports whether err is a Postgres 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classifyPgError maps database failures onto the error taxonomy.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return NewError(Conflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Server rejected the statement; retrying the same batch cannot help.
		return NewError(Integrity, err)
	}
	return NewError(StoreUnavailable, err)
}

// PoolStats feeds connection-pool gauges.
type PoolStats struct {
	InUse       int32
	Idle        int32
	WaitSeconds float64
}

// Stats snapshots the connection pool.
func (s *Store) Stats() PoolStats {
	st := s.pool.Stat()
	return PoolStats{
		InUse:       st.AcquiredConns(),
		Idle:        st.IdleConns(),
		WaitSeconds: st.AcquireDuration().Seconds(),
	}
}

// MarginPoolInfo names one pool the live-state poller must query.
type MarginPoolInfo struct {
	PoolID    string
	AssetType string
	Decimals  int16
}

// MarginPools enumerates distinct created margin pools joined to the assets
// table for decimals. Asset types are compared with the 0x prefix stripped,
// because event payloads and the reference table disagree on it.
func (s *Store) MarginPools(ctx context.Context) ([]MarginPoolInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT m.margin_pool_id, m.asset_type, a.decimals
		 FROM margin_pool_admin m
		 JOIN assets a
		   ON REGEXP_REPLACE(LOWER(a.asset_type), '^0x', '') = REGEXP_REPLACE(LOWER(m.asset_type), '^0x', '')
		 WHERE m.event_type = 'created' AND m.asset_type IS NOT NULL`)
	if err != nil {
		return nil, NewError(StoreUnavailable, err)
	}
	defer rows.Close()

	var out []MarginPoolInfo
	for rows.Next() {
		var info MarginPoolInfo
		if err := rows.Scan(&info.PoolID, &info.AssetType, &info.Decimals); err != nil {
			return nil, NewError(StoreUnavailable, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
