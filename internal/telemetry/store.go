package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("telemetry: pool not configured")

const (
	insertEventSQL = `INSERT INTO cost_events (
        kind,
        provider,
        symbol,
        model,
        prompt_tokens,
        completion_tokens,
        detail,
        occurred_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listRecentEventsSQL = `SELECT
        kind,
        provider,
        symbol,
        model,
        prompt_tokens,
        completion_tokens,
        detail,
        occurred_at
    FROM cost_events
    ORDER BY occurred_at DESC
    LIMIT $1;`

	insertRunSQL = `INSERT INTO pipeline_runs (
        started_at,
        finished_at,
        items_total,
        items_approved,
        items_skipped,
        price_alerts,
        escalations,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    ) RETURNING id;`

	listRecentRunsSQL = `SELECT
        id,
        started_at,
        finished_at,
        items_total,
        items_approved,
        items_skipped,
        price_alerts,
        escalations,
        status,
        error
    FROM pipeline_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RunRecord summarises one completed pipeline run for auditing.
type RunRecord struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	ItemsTotal    int
	ItemsApproved int
	ItemsSkipped  int
	PriceAlerts   int
	Escalations   int
	Status        string
	Error         *string
}

// RunStore persists pipeline-run audit records.
type RunStore interface {
	InsertRun(ctx context.Context, run RunRecord) (int64, error)
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers so overlapping watch
// processes do not double-record a bucket.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the Postgres-backed telemetry writer and run auditor.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// WriteEvent persists one cost event.
func (s *Store) WriteEvent(ctx context.Context, event Event) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, insertEventSQL,
		event.Kind,
		event.Provider,
		event.Symbol,
		event.Model,
		event.PromptTokens,
		event.CompletionTokens,
		event.Detail,
		event.OccurredAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert cost event: %w", execErr)
	}
	return nil
}

// ListRecentEvents lists the most recent cost events.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]Event, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.Kind,
			&e.Provider,
			&e.Symbol,
			&e.Model,
			&e.PromptTokens,
			&e.CompletionTokens,
			&e.Detail,
			&e.OccurredAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// InsertRun persists one run summary and returns its id.
func (s *Store) InsertRun(ctx context.Context, run RunRecord) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertRunSQL,
		run.StartedAt,
		run.FinishedAt,
		run.ItemsTotal,
		run.ItemsApproved,
		run.ItemsSkipped,
		run.PriceAlerts,
		run.Escalations,
		run.Status,
		errMsg,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert pipeline run: %w", scanErr)
	}
	return id, nil
}

// ListRecentRuns lists the most recent run summaries.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		run, scanErr := scanRunRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func scanRunRecord(rows pgx.Rows) (RunRecord, error) {
	var (
		run    RunRecord
		errMsg sql.NullString
	)
	if err := rows.Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.ItemsTotal,
		&run.ItemsApproved,
		&run.ItemsSkipped,
		&run.PriceAlerts,
		&run.Escalations,
		&run.Status,
		&errMsg,
	); err != nil {
		return RunRecord{}, err
	}
	if errMsg.Valid {
		msg := errMsg.String
		run.Error = &msg
	}
	return run, nil
}

var (
	_ Writer         = (*Store)(nil)
	_ RunStore       = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
