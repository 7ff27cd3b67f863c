// Package history persists an append-only log of accepted position
// samples in Postgres. Writes are best-effort
// (write-behind): a failed append is logged, not surfaced to the caller,
// since losing one history row must never cause the ingestion pipeline to
// reject a live position.
package history

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sentinel/internal/types"
)

// Record is one row of the append-only position log. ClientReportedAt is
// the device-supplied capture time used for ordering and derived-motion
// math; ServerRecordedAt is when this engine accepted the sample, kept
// separately so clock skew between device and server is never silently
// merged into one column.
type Record struct {
	TouristID        types.ID
	Name             string
	Position         types.Point
	Accuracy         float64
	ClientReportedAt time.Time
	ServerRecordedAt time.Time
	SpeedMS          float64
	HeadingDegrees   float64
	DistanceMeters   float64
	TimeGapSeconds   float64
	Quality          float64
	Anomalous        bool
	// SnapshotVersion is the zone registry version this sample was
	// evaluated against, letting an audit reconstruct which zone boundaries
	// were live at the time.
	SnapshotVersion int64
	Anonymized      bool
	RetentionDays   int
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Append inserts one position record. Called from a background goroutine
// by the ingestion pipeline, not inline with the request, so Postgres
// latency never adds to position-update response time.
func (s *Store) Append(ctx context.Context, r Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO position_history (
			tourist_id, name, lat, lng, accuracy, client_reported_at,
			server_recorded_at, speed_ms, heading_degrees, distance_meters,
			time_gap_seconds, quality, anomalous, snapshot_version,
			anonymized, retention_days
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`,
		string(r.TouristID), r.Name, r.Position.Lat, r.Position.Lng, r.Accuracy,
		r.ClientReportedAt, r.ServerRecordedAt, r.SpeedMS, r.HeadingDegrees,
		r.DistanceMeters, r.TimeGapSeconds, r.Quality, r.Anomalous,
		r.SnapshotVersion, r.Anonymized, r.RetentionDays,
	)
	return err
}

// AppendBestEffort is the write-behind entry point ingestion calls: it logs
// failures rather than returning them, matching the best-effort contract in
// this package's doc comment.
func (s *Store) AppendBestEffort(ctx context.Context, r Record) {
	if err := s.Append(ctx, r); err != nil {
		log.Printf("[degraded] history: append failed for tourist %s: %v", r.TouristID, err)
	}
}

// ForTourist returns recorded positions for one tourist within [since, now],
// oldest first, for audit or SOS-response review.
func (s *Store) ForTourist(ctx context.Context, id types.ID, since time.Time) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tourist_id, name, lat, lng, accuracy, client_reported_at,
		       server_recorded_at, speed_ms, heading_degrees, distance_meters,
		       time_gap_seconds, quality, anomalous, snapshot_version,
		       anonymized, retention_days
		FROM position_history
		WHERE tourist_id = $1 AND client_reported_at >= $2
		ORDER BY client_reported_at ASC`,
		string(id), since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.TouristID, &r.Name, &r.Position.Lat, &r.Position.Lng, &r.Accuracy,
			&r.ClientReportedAt, &r.ServerRecordedAt, &r.SpeedMS, &r.HeadingDegrees,
			&r.DistanceMeters, &r.TimeGapSeconds, &r.Quality, &r.Anomalous,
			&r.SnapshotVersion, &r.Anonymized, &r.RetentionDays,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CompactOlderThan deletes history rows whose age exceeds each row's own
// retention_days, run periodically by a background ticker. A row with
// retention_days = 0 (no consent record was on file when it was written)
// falls back to defaultRetentionDays. Returns the number of rows removed.
func (s *Store) CompactOlderThan(ctx context.Context, defaultRetentionDays int) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM position_history
		WHERE client_reported_at < now() - (
			CASE WHEN retention_days > 0 THEN retention_days ELSE $1 END
		) * interval '1 day'`,
		defaultRetentionDays,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RunCompactor blocks running CompactOlderThan on interval until ctx is
// cancelled, logging what it removes. Intended to be started as a
// goroutine from main.
func (s *Store) RunCompactor(ctx context.Context, interval time.Duration, defaultRetentionDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CompactOlderThan(ctx, defaultRetentionDays)
			if err != nil {
				log.Printf("history: compaction failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("history: compacted %d rows past their retention window", removed)
			}
		}
	}
}
