package snapshot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/logging"
	"creatorsync/internal/services"
	"creatorsync/internal/store"
)

// Writer persists snapshots.
type Writer interface {
	UpsertSnapshot(ctx context.Context, snap store.Snapshot) error
}

// Recorder turns enrichment metrics into idempotent snapshot rows.
type Recorder struct {
	writer Writer
	logger *slog.Logger
}

// NewRecorder constructs a recorder.
func NewRecorder(writer Writer, logger *slog.Logger) *Recorder {
	return &Recorder{writer: writer, logger: logging.NewComponentLogger(logger, "snapshot")}
}

// Record stores the metrics for creatorID under the UTC day of m.EnrichedAt.
func (r *Recorder) Record(ctx context.Context, creatorID int64, m creator.Metrics) error {
	source := strings.TrimSpace(m.Source)
	if creatorID <= 0 || source == "" {
		return services.Wrap(services.ErrValidation, "snapshot", "record", "creator id and source are required", nil)
	}
	at := m.EnrichedAt
	if at.IsZero() {
		at = time.Now()
	}
	snap := store.Snapshot{
		CreatorID:     creatorID,
		Date:          at.UTC().Format(store.DateLayout),
		Source:        source,
		FollowerCount: m.FollowerCount,
		GMVCents:      m.GMVCents,
		VideoGMVCents: m.VideoGMVCents,
		AvgVideoViews: m.AvgVideoViews,
		CapturedAt:    at,
	}
	if err := r.writer.UpsertSnapshot(ctx, snap); err != nil {
		return services.Wrap(services.ErrTransient, "snapshot", "record", "upsert failed", err)
	}
	r.logger.Debug("snapshot recorded",
		logging.Int64(logging.FieldCreatorID, creatorID),
		logging.String("date", snap.Date),
		logging.String("source", source),
	)
	return nil
}
