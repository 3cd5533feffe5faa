package buffer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/aq-logger/internal/infrastructure/database"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
	"github.com/nerrad567/aq-logger/migrations"
)

// sqliteOpTimeout bounds each buffer statement.
const sqliteOpTimeout = 10 * time.Second

// SQLiteBuffer stores records as rows ordered by an autoincrement sequence.
// Commit quarantines and deletes the drained rows in one transaction, so a
// crash either leaves every drained row in place or none.
type SQLiteBuffer struct {
	db     *database.DB
	log    *logging.Logger
	mu     sync.Mutex
	closed bool

	// drainedSeq is the highest row the pending drain covers; 0 means none.
	drainedSeq int64
	// undecodable lists drained rows that go to rejected_readings on Commit.
	undecodable []rejectedRow
}

type rejectedRow struct {
	seq    int64
	reason string
}

// OpenSQLite validates path, opens the database and applies the buffer schema.
func OpenSQLite(path string, busyTimeout int, log *logging.Logger) (*SQLiteBuffer, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	db, err := database.Open(database.Config{
		Path:        path,
		BusyTimeout: busyTimeout,
		Durable:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: migrating buffer schema: %w", ErrConfiguration, err)
	}

	return &SQLiteBuffer{db: db, log: log}, nil
}

// Append inserts r as the newest row.
func (b *SQLiteBuffer) Append(r reading.Reading) error {
	payload, err := reading.EncodeRecord(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err = b.db.ExecContext(ctx,
		"INSERT INTO buffered_readings (version, payload, created_at) VALUES (?, ?, ?)",
		reading.RecordVersion, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting record: %w", ErrIO, err)
	}
	return nil
}

// Exists reports whether any row is waiting.
func (b *SQLiteBuffer) Exists() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var found int
	err := b.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM buffered_readings)").Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: checking backlog: %w", ErrIO, err)
	}
	return found == 1, nil
}

// DrainAll returns every row in sequence order. The rows stay until Commit.
func (b *SQLiteBuffer) DrainAll() ([]reading.Reading, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	rows, err := b.db.QueryContext(ctx, "SELECT seq, payload FROM buffered_readings ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("%w: draining: %w", ErrIO, err)
	}
	defer rows.Close()

	var (
		out         []reading.Reading
		undecodable []rejectedRow
		maxSeq      int64
	)
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("%w: draining: %w", ErrIO, err)
		}
		maxSeq = seq

		r, err := reading.DecodeRecord([]byte(payload))
		if err != nil {
			b.log.Warn("setting aside unreadable buffered record", "seq", seq, "error", err)
			undecodable = append(undecodable, rejectedRow{seq: seq, reason: err.Error()})
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: draining: %w", ErrIO, err)
	}

	b.drainedSeq = maxSeq
	b.undecodable = undecodable
	return out, nil
}

// Commit moves undecodable drained rows to rejected_readings and deletes
// every drained row, in one transaction.
func (b *SQLiteBuffer) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.drainedSeq == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := b.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, rr := range b.undecodable {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rejected_readings (source_seq, reason, record, rejected_at)
				SELECT seq, ?, payload, ? FROM buffered_readings WHERE seq = ?`,
				rr.reason, now, rr.seq); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM buffered_readings WHERE seq <= ?", b.drainedSeq)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: committing drain: %w", ErrIO, err)
	}
	if len(b.undecodable) > 0 {
		b.log.Warn("quarantined unreadable buffered records", "count", len(b.undecodable))
	}

	b.drainedSeq = 0
	b.undecodable = nil
	return nil
}

// Reject stores r in rejected_readings.
func (b *SQLiteBuffer) Reject(r reading.Reading, reason error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx,
		"INSERT INTO rejected_readings (reason, record, rejected_at) VALUES (?, ?, ?)",
		reason.Error(), describe(r), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: quarantining record: %w", ErrIO, err)
	}
	return nil
}

// Health runs the database health check.
func (b *SQLiteBuffer) Health(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
