package zone

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"sentinel/internal/geo"
	"sentinel/internal/types"
)

// Store persists zones to Postgres. Writes from Registry mutations are
// applied write-behind (fire-and-forget: the HTTP handlers run Upsert in its
// own goroutine and do not inspect or log its error) so that a slow
// or unavailable database never blocks an authority's write request; the
// in-memory Registry is the authority's source of truth between restarts,
// and Store.LoadAll repopulates it on startup.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Upsert writes the current state of one zone, including tombstones. The
// conflict clause deliberately never updates geometry: a zone's boundary is
// immutable after creation (Registry.Update enforces this too), so the
// column is only ever written on the initial INSERT.
func (s *Store) Upsert(ctx context.Context, z *Zone) error {
	vertices, err := encodeVertices(z.Geometry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO zones (
			id, name, description, variant, severity, geometry, active,
			created_at, updated_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, description = $3, variant = $4, severity = $5,
			active = $7, updated_at = $9, deleted_at = $10`,
		string(z.ID), z.Name, z.Description, string(z.Variant), string(z.Severity),
		vertices, z.Active, z.CreatedAt, z.UpdatedAt, z.DeletedAt,
	)
	return err
}

// LoadAll restores every non-compacted zone (including tombstones, so
// CompactTombstones can resume its own bookkeeping) on startup.
func (s *Store) LoadAll(ctx context.Context) ([]*Zone, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, variant, severity, geometry, active,
		       created_at, updated_at, deleted_at
		FROM zones`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var out []*Zone
	for rows.Next() {
		var z Zone
		var vertices []float64
		var deletedAt sql.NullTime
		if err := rows.Scan(
			&z.ID, &z.Name, &z.Description, &z.Variant, &z.Severity, &vertices,
			&z.Active, &z.CreatedAt, &z.UpdatedAt, &deletedAt,
		); err != nil {
			return nil, err
		}
		z.Geometry = decodeVertices(vertices)
		if deletedAt.Valid {
			t := deletedAt.Time
			z.DeletedAt = &t
		}
		out = append(out, &z)
	}
	return out, rows.Err()
}

// DeleteCompacted permanently removes rows for zones no longer tracked by
// the in-memory registry after a compaction pass.
func (s *Store) DeleteCompacted(ctx context.Context, ids []types.ID) error {
	for _, id := range ids {
		if _, err := s.db.Exec(ctx, `DELETE FROM zones WHERE id = $1`, string(id)); err != nil {
			return err
		}
	}
	return nil
}

// encodeVertices/decodeVertices store a polygon as flat lat/lng pairs in a
// Postgres double precision[] column, avoiding a PostGIS dependency the
// rest of this codebase has no other use for.
func encodeVertices(p geo.Polygon) ([]float64, error) {
	flat := make([]float64, 0, len(p.Vertices)*2)
	for _, v := range p.Vertices {
		flat = append(flat, v.Lat, v.Lng)
	}
	return flat, nil
}

func decodeVertices(flat []float64) geo.Polygon {
	verts := make([]types.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		verts = append(verts, types.Point{Lat: flat[i], Lng: flat[i+1]})
	}
	return geo.Polygon{Vertices: verts}
}
