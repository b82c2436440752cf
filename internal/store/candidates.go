package store

import (
	"context"
	"time"

	"creatorsync/internal/creator"
)

// CandidateQuery bounds an enrichment candidate read.
type CandidateQuery struct {
	StaleBefore time.Time // enriched strictly before this instant counts as stale
	RecentSince time.Time // a sample at or after this instant counts as recent activity
	Limit       int
}

// EnrichmentCandidates returns creators with a usable handle that were never
// enriched or were enriched before StaleBefore, in refresh priority order:
// recent sample activity first, never-enriched before stale, higher GMV, then id.
func (s *Store) EnrichmentCandidates(ctx context.Context, q CandidateQuery) ([]*creator.Creator, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	return s.list(ctx, "enrichment candidates",
		`SELECT `+creatorColumns+` FROM creators
        WHERE handle_key IS NOT NULL
          AND (last_enriched_at IS NULL OR last_enriched_at < ?)
        ORDER BY
          CASE WHEN last_sample_at IS NOT NULL AND last_sample_at >= ? THEN 0 ELSE 1 END,
          CASE WHEN last_enriched_at IS NULL THEN 0 ELSE 1 END,
          gmv_cents DESC,
          id
        LIMIT ?`,
		formatTime(q.StaleBefore),
		formatTime(q.RecentSince),
		q.Limit,
	)
}
