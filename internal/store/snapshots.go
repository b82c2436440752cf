package store

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is a point-in-time metric measurement for one creator.
type Snapshot struct {
	CreatorID     int64
	Date          string // YYYY-MM-DD, UTC
	Source        string
	FollowerCount int64
	GMVCents      int64
	VideoGMVCents int64
	AvgVideoViews int64
	CapturedAt    time.Time
}

// UpsertSnapshot writes a snapshot keyed by (creator, date, source). A later
// write for the same key replaces the metrics of the existing row.
func (s *Store) UpsertSnapshot(ctx context.Context, snap Snapshot) error {
	captured := snap.CapturedAt
	if captured.IsZero() {
		captured = s.now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO snapshots (
            creator_id, snapshot_date, source, follower_count, gmv_cents,
            video_gmv_cents, avg_video_views, captured_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (creator_id, snapshot_date, source) DO UPDATE SET
            follower_count = excluded.follower_count,
            gmv_cents = excluded.gmv_cents,
            video_gmv_cents = excluded.video_gmv_cents,
            avg_video_views = excluded.avg_video_views,
            captured_at = excluded.captured_at`,
		snap.CreatorID,
		snap.Date,
		snap.Source,
		snap.FollowerCount,
		snap.GMVCents,
		snap.VideoGMVCents,
		snap.AvgVideoViews,
		formatTime(captured),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns a creator's snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, creatorID int64, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.query(ctx,
		`SELECT creator_id, snapshot_date, source, follower_count, gmv_cents,
                video_gmv_cents, avg_video_views, captured_at
         FROM snapshots WHERE creator_id = ?
         ORDER BY snapshot_date DESC, source
         LIMIT ?`,
		creatorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap        Snapshot
			capturedRaw string
		)
		if err := rows.Scan(&snap.CreatorID, &snap.Date, &snap.Source, &snap.FollowerCount,
			&snap.GMVCents, &snap.VideoGMVCents, &snap.AvgVideoViews, &capturedRaw); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if captured, err := parseTimeString(capturedRaw); err == nil {
			snap.CapturedAt = captured
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CountSnapshots returns how many rows exist for a snapshot key.
func (s *Store) CountSnapshots(ctx context.Context, creatorID int64, date, source string) (int, error) {
	var count int
	err := s.queryRow(ctx,
		`SELECT COUNT(1) FROM snapshots WHERE creator_id = ? AND snapshot_date = ? AND source = ?`,
		creatorID, date, source,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return count, nil
}
