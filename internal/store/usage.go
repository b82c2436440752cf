package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UsageDay is the number of external calls made to one API on one day.
type UsageDay struct {
	Day   string
	API   string
	Calls int
}

// IncrementUsage records one call against api for day and returns the new total.
func (s *Store) IncrementUsage(ctx context.Context, day, api string) (int, error) {
	var calls int
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.queryRow(ctx,
			`INSERT INTO api_usage (day, api, calls) VALUES (?, ?, 1)
            ON CONFLICT (day, api) DO UPDATE SET calls = api_usage.calls + 1
            RETURNING calls`,
			day, api,
		).Scan(&calls)
	})
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return calls, nil
}

// UsageFor returns the number of calls recorded for api on day.
func (s *Store) UsageFor(ctx context.Context, day, api string) (int, error) {
	var calls int
	err := s.queryRow(ctx,
		`SELECT calls FROM api_usage WHERE day = ? AND api = ?`,
		day, api,
	).Scan(&calls)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return calls, nil
}

// RecentUsage returns usage rows for the most recent days, newest first.
func (s *Store) RecentUsage(ctx context.Context, limit int) ([]UsageDay, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.query(ctx, `SELECT day, api, calls FROM api_usage ORDER BY day DESC, api LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []UsageDay
	for rows.Next() {
		var u UsageDay
		if err := rows.Scan(&u.Day, &u.API, &u.Calls); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
