package zone

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"sentinel/internal/geo"
	"sentinel/internal/metrics"
	"sentinel/internal/types"
)

var (
	ErrNotFound       = errors.New("zone not found")
	ErrGeometryFrozen = errors.New("zone geometry is immutable after creation")
	ErrAlreadyDeleted = errors.New("zone already deleted")
)

// Snapshot is an immutable, versioned view of the active zone set. Readers
// hold a Snapshot for the lifetime of one evaluation and never see a zone
// mutate underneath them: every write publishes a fresh immutable snapshot
// behind a single atomic pointer instead of versioning individual rows.
type Snapshot struct {
	Version int64
	Zones   []*Zone
}

// Registry is the live, mutable zone set. Reads take the current Snapshot
// via an atomic pointer swap; writes are serialized by mu and build a new
// Snapshot before publishing it, so Current() never blocks.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	// byID tracks every zone ever created, including tombstoned ones, so
	// Get and compaction can find them without rescanning history.
	byID map[types.ID]*Zone
}

func NewRegistry() *Registry {
	r := &Registry{byID: make(map[types.ID]*Zone)}
	r.current.Store(&Snapshot{Version: 0, Zones: nil})
	return r
}

// Current returns the live snapshot. Safe for concurrent use by any number
// of evaluators; never blocks on a concurrent writer.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Create registers a newly authored zone after validating its geometry,
// stamping CreatedAt/UpdatedAt to now and Active to true. A duplicate name
// is logged as a warning and accepted, not rejected: this resolves the
// open question in favor of permissiveness, since authority operators
// routinely reuse human-readable names across neighborhoods.
func (r *Registry) Create(ctx context.Context, z *Zone) error {
	now := time.Now()
	z.CreatedAt = now
	z.Active = true
	return r.insert(ctx, z)
}

// Restore re-registers a zone loaded back from persistent storage,
// preserving its real CreatedAt and whatever Active state an authority
// last set for it. Create cannot be reused for this directly: it always
// stamps CreatedAt to now and Active to true, which would silently
// reactivate every zone an authority had deactivated on every restart.
func (r *Registry) Restore(ctx context.Context, z *Zone) error {
	return r.insert(ctx, z)
}

func (r *Registry) insert(ctx context.Context, z *Zone) error {
	if err := geo.Valid(z.Geometry); err != nil {
		return types.NewError(types.KindInvalidGeometry, "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.deleted() {
			continue
		}
		if existing.Name == z.Name {
			log.Printf("zone: warning: duplicate zone name %q (existing id=%s, new id=%s)", z.Name, existing.ID, z.ID)
			break
		}
	}

	z.UpdatedAt = time.Now()
	r.byID[z.ID] = z
	r.publishLocked()
	return nil
}

// Update changes a zone's mutable fields (name, description, severity,
// active flag) in place. Geometry is immutable once created: callers that
// need a new boundary must delete the old zone and create a new one, so a
// Snapshot's polygons never change under an evaluator holding it.
func (r *Registry) Update(ctx context.Context, id types.ID, fn func(z *Zone) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok || existing.deleted() {
		return ErrNotFound
	}

	before := existing.Geometry
	updated := *existing
	if err := fn(&updated); err != nil {
		return err
	}
	if !polygonEqual(before, updated.Geometry) {
		return ErrGeometryFrozen
	}
	updated.UpdatedAt = time.Now()
	r.byID[id] = &updated
	r.publishLocked()
	return nil
}

// Delete tombstones a zone: it drops out of the live snapshot immediately
// but is retained in byID until CompactTombstones reclaims it, so history
// rows that reference it keep resolving.
func (r *Registry) Delete(ctx context.Context, id types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if existing.deleted() {
		return ErrAlreadyDeleted
	}
	now := time.Now()
	tombstone := *existing
	tombstone.DeletedAt = &now
	tombstone.Active = false
	r.byID[id] = &tombstone
	r.publishLocked()
	return nil
}

func (r *Registry) Get(id types.ID) (*Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return z, nil
}

// CompactTombstones permanently removes zones deleted more than olderThan
// ago and returns their IDs, so a caller can also purge them from
// persistent storage. Run periodically by a background ticker, never
// inline with a request.
func (r *Registry) CompactTombstones(olderThan time.Duration) []types.ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var removed []types.ID
	for id, z := range r.byID {
		if z.deleted() && z.DeletedAt.Before(cutoff) {
			delete(r.byID, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		metrics.ZoneCompactionsTotal.Add(float64(len(removed)))
	}
	return removed
}

// publishLocked rebuilds the active-zone slice from byID and atomically
// swaps it in. Must be called with mu held.
func (r *Registry) publishLocked() {
	prev := r.current.Load()
	zones := make([]*Zone, 0, len(r.byID))
	for _, z := range r.byID {
		if z.Active && !z.deleted() {
			zones = append(zones, z)
		}
	}
	r.current.Store(&Snapshot{Version: prev.Version + 1, Zones: zones})
}

func polygonEqual(a, b geo.Polygon) bool {
	if len(a.Vertices) != len(b.Vertices) {
		return false
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			return false
		}
	}
	return true
}
