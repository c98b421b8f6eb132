package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// timeLayout is fixed-width so stored timestamps sort as strings.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// HistoryEntry is one stored subscriber reading.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	Topic      string    `json:"topic"`
	Subscriber string    `json:"subscriber"`
	Published  uint64    `json:"published"`
	Delivered  uint64    `json:"delivered"`
	Dropped    uint64    `json:"dropped"`
	Queued     int       `json:"queued"`
	Capacity   int       `json:"capacity"`
	SampledAt  time.Time `json:"sampled_at"`
}

// HistoryRepository stores and retrieves sampled statistics.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type HistoryRepository interface {
	// Record stores one row per subscriber of the sample.
	Record(ctx context.Context, s Sample) error

	// History returns the newest entries for topic, newest first.
	// limit is clamped to [1, 500]; zero or less means 50.
	History(ctx context.Context, topic string, limit int) ([]HistoryEntry, error)

	// Prune deletes entries sampled more than olderThan ago and returns how
	// many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on the stats_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a repository on an open, migrated database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Record inserts the sample's subscriber rows in a single transaction.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, s Sample) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stats_history
		 (run_id, topic, subscriber, published, delivered, dropped, queued, capacity, sampled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	sampledAt := s.Taken.UTC().Format(timeLayout)
	for _, ts := range s.Snapshot.Topics {
		for _, sub := range ts.Subscribers {
			if _, err := stmt.ExecContext(ctx,
				s.RunID.String(),
				ts.Name,
				sub.Name,
				int64(ts.Published),
				int64(sub.Delivered),
				int64(sub.Dropped),
				sub.Queued,
				sub.Capacity,
				sampledAt,
			); err != nil {
				return fmt.Errorf("inserting stats for %s/%s: %w", ts.Name, sub.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stats: %w", err)
	}
	return nil
}

// History returns recent entries for topic ordered by sample time, newest first.
func (r *SQLiteHistoryRepository) History(ctx context.Context, topic string, limit int) ([]HistoryEntry, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, topic, subscriber, published, delivered, dropped, queued, capacity, sampled_at
		 FROM stats_history
		 WHERE topic = ?
		 ORDER BY sampled_at DESC, id DESC
		 LIMIT ?`,
		topic,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var runID, sampledAt string
		var published, delivered, dropped int64
		if err := rows.Scan(&e.ID, &runID, &e.Topic, &e.Subscriber,
			&published, &delivered, &dropped, &e.Queued, &e.Capacity, &sampledAt); err != nil {
			return nil, fmt.Errorf("scanning stats history: %w", err)
		}

		if e.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("parsing run_id: %w", err)
		}
		if e.SampledAt, err = time.Parse(timeLayout, sampledAt); err != nil {
			return nil, fmt.Errorf("parsing sampled_at: %w", err)
		}
		e.Published = uint64(published)
		e.Delivered = uint64(delivered)
		e.Dropped = uint64(dropped)

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stats history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM stats_history WHERE sampled_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stats history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
