package zone

import (
	"context"
	"testing"
	"time"

	"sentinel/internal/geo"
	"sentinel/internal/types"
)

func testPolygon() geo.Polygon {
	return geo.Polygon{Vertices: []types.Point{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 0},
	}}
}

func TestRegistry_CreateAndSnapshot(t *testing.T) {
	r := NewRegistry()
	before := r.Current()

	z := &Zone{ID: "z1", Name: "Red Fort", Variant: VariantRestricted, Severity: SeverityHigh, Geometry: testPolygon()}
	if err := r.Create(context.Background(), z); err != nil {
		t.Fatalf("Create: %v", err)
	}

	after := r.Current()
	if after.Version <= before.Version {
		t.Errorf("expected snapshot version to advance, before=%d after=%d", before.Version, after.Version)
	}
	if len(before.Zones) != 0 {
		t.Errorf("old snapshot must not see the new zone (copy-on-write), got %d zones", len(before.Zones))
	}
	if len(after.Zones) != 1 {
		t.Fatalf("expected 1 zone in new snapshot, got %d", len(after.Zones))
	}
}

func TestRegistry_RejectsInvalidGeometry(t *testing.T) {
	r := NewRegistry()
	z := &Zone{ID: "z1", Name: "broken", Geometry: geo.Polygon{Vertices: []types.Point{{Lat: 0, Lng: 0}}}}
	err := r.Create(context.Background(), z)
	if err == nil {
		t.Fatal("expected error for invalid geometry")
	}
	if types.KindOf(err) != types.KindInvalidGeometry {
		t.Errorf("expected KindInvalidGeometry, got %v", types.KindOf(err))
	}
}

func TestRegistry_DuplicateNameWarnsNotRejects(t *testing.T) {
	r := NewRegistry()
	a := &Zone{ID: "z1", Name: "Old City", Variant: VariantRestricted, Geometry: testPolygon()}
	b := &Zone{ID: "z2", Name: "Old City", Variant: VariantRestricted, Geometry: testPolygon()}

	if err := r.Create(context.Background(), a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := r.Create(context.Background(), b); err != nil {
		t.Fatalf("expected duplicate name to be accepted, got error: %v", err)
	}

	snap := r.Current()
	if len(snap.Zones) != 2 {
		t.Fatalf("expected both same-named zones present, got %d", len(snap.Zones))
	}
}

func TestRegistry_UpdateRejectsGeometryChange(t *testing.T) {
	r := NewRegistry()
	z := &Zone{ID: "z1", Name: "Old City", Geometry: testPolygon()}
	if err := r.Create(context.Background(), z); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := r.Update(context.Background(), "z1", func(z *Zone) error {
		z.Geometry = geo.Polygon{Vertices: []types.Point{
			{Lat: 5, Lng: 5}, {Lat: 5, Lng: 6}, {Lat: 6, Lng: 6}, {Lat: 6, Lng: 5}, {Lat: 5, Lng: 5},
		}}
		return nil
	})
	if err != ErrGeometryFrozen {
		t.Fatalf("expected ErrGeometryFrozen, got %v", err)
	}
}

func TestRegistry_UpdateAllowsMutableFields(t *testing.T) {
	r := NewRegistry()
	z := &Zone{ID: "z1", Name: "Old City", Severity: SeverityLow, Geometry: testPolygon()}
	if err := r.Create(context.Background(), z); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := r.Update(context.Background(), "z1", func(z *Zone) error {
		z.Severity = SeverityHigh
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := r.Get("z1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Severity != SeverityHigh {
		t.Errorf("expected severity updated to high, got %s", got.Severity)
	}
}

func TestRegistry_DeleteTombstonesUntilCompaction(t *testing.T) {
	r := NewRegistry()
	z := &Zone{ID: "z1", Name: "Old City", Geometry: testPolygon()}
	if err := r.Create(context.Background(), z); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Delete(context.Background(), "z1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	snap := r.Current()
	if len(snap.Zones) != 0 {
		t.Errorf("expected deleted zone excluded from live snapshot, got %d zones", len(snap.Zones))
	}

	if _, err := r.Get("z1"); err != nil {
		t.Errorf("expected tombstoned zone still retrievable by Get before compaction, got %v", err)
	}

	removed := r.CompactTombstones(0)
	if len(removed) != 1 {
		t.Errorf("expected compaction to remove 1 tombstone, removed %d", len(removed))
	}
	if _, err := r.Get("z1"); err != ErrNotFound {
		t.Errorf("expected zone gone after compaction, got %v", err)
	}
}

func TestRegistry_RestorePreservesCreatedAtAndInactiveState(t *testing.T) {
	r := NewRegistry()
	createdAt := time.Now().Add(-72 * time.Hour)
	z := &Zone{ID: "z1", Name: "Old City", Geometry: testPolygon(), CreatedAt: createdAt, Active: false}
	if err := r.Restore(context.Background(), z); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := r.Get("z1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("expected CreatedAt preserved from storage, got %s want %s", got.CreatedAt, createdAt)
	}
	if got.Active {
		t.Error("expected a zone an authority had deactivated to stay inactive after restore")
	}
	if len(r.Current().Zones) != 0 {
		t.Error("expected an inactive restored zone excluded from the live snapshot")
	}
}

func TestRegistry_CompactionRespectsGracePeriod(t *testing.T) {
	r := NewRegistry()
	z := &Zone{ID: "z1", Name: "Old City", Geometry: testPolygon()}
	if err := r.Create(context.Background(), z); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Delete(context.Background(), "z1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	removed := r.CompactTombstones(time.Hour)
	if len(removed) != 0 {
		t.Errorf("expected recently-deleted zone to survive compaction within grace period, removed %d", len(removed))
	}
}
