package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CounterModel implements named monotonic counters shared by cooperating
// worker processes. Increment uses optimistic read-modify-write so N
// parallel callers each observe a distinct previous value with no gaps.
type CounterModel struct {
	DB DBTX
}

// Increment bumps the named counter and returns its previous value.
// Lost updates (another process won the compare-and-set) retry
// indefinitely with capped backoff; the caller only sees an error when
// the store itself is unavailable.
func (m CounterModel) Increment(ctx context.Context, name string) (int64, error) {
	backoff := 5 * time.Millisecond
	for {
		var current int64
		err := m.DB.QueryRowContext(ctx,
			`SELECT value FROM counters WHERE name = $1`, name).Scan(&current)
		if err == sql.ErrNoRows {
			// First use: seed the row. A concurrent seed loses on the
			// unique constraint and falls through to the CAS path.
			res, err := m.DB.ExecContext(ctx,
				`INSERT INTO counters (name, value) VALUES ($1, 1) ON CONFLICT (name) DO NOTHING`, name)
			if err != nil {
				return 0, fmt.Errorf("seed counter %s: %w", name, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 1 {
				return 0, nil
			}
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read counter %s: %w", name, err)
		}

		res, err := m.DB.ExecContext(ctx,
			`UPDATE counters SET value = $1 WHERE name = $2 AND value = $3`,
			current+1, name, current)
		if err != nil {
			return 0, fmt.Errorf("update counter %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return current, nil
		}

		// CAS lost; back off briefly and retry.
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}
