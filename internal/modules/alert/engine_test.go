package alert

import (
	"testing"
	"time"

	"sentinel/internal/geo"
	"sentinel/internal/modules/geofence"
	"sentinel/internal/modules/zone"
	"sentinel/internal/types"
)

func restrictedZone(id types.ID, severity zone.Severity) *zone.Zone {
	return &zone.Zone{
		ID:       id,
		Name:     string(id),
		Variant:  zone.VariantRestricted,
		Severity: severity,
		Geometry: geo.Polygon{Vertices: []types.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 0}}},
	}
}

func safeZone(id types.ID, severity zone.Severity) *zone.Zone {
	z := restrictedZone(id, severity)
	z.Variant = zone.VariantSafe
	return z
}

func withFixedClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func resultFor(tr geofence.Transition, containedZones ...*zone.Zone) geofence.Result {
	return geofence.Result{Transitions: []geofence.Transition{tr}, ContainedZones: containedZones}
}

func TestEngine_EnterRestrictedZoneIsGeofenceBreach(t *testing.T) {
	e := New(10, time.Second)
	z := restrictedZone("z1", zone.SeverityHigh)
	emitted := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: true}, z))
	if len(emitted) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(emitted))
	}
	if emitted[0].Kind != KindGeofenceBreach || emitted[0].Severity != SeverityHigh {
		t.Errorf("unexpected alert: %+v", emitted[0])
	}
	if emitted[0].TouristName != "Jane" || emitted[0].ZoneName != "z1" {
		t.Errorf("expected tourist/zone names propagated, got %+v", emitted[0])
	}
}

func TestEngine_EnterSafeZoneProducesNoAlert(t *testing.T) {
	e := New(10, time.Second)
	z := safeZone("z1", zone.SeverityHigh)
	emitted := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: true}, z))
	if len(emitted) != 0 {
		t.Fatalf("expected no alert for entering a safe zone, got %+v", emitted)
	}
}

func TestEngine_ExitRestrictedZoneProducesNoAlert(t *testing.T) {
	e := New(10, time.Second)
	z := restrictedZone("z1", zone.SeverityHigh)
	emitted := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: false}))
	if len(emitted) != 0 {
		t.Fatalf("expected no alert for leaving a restricted zone, got %+v", emitted)
	}
}

func TestEngine_ExitSafeZoneWithNoneRemainingIsSafeZoneExit(t *testing.T) {
	e := New(10, time.Second)
	z := safeZone("z1", zone.SeverityMedium)
	emitted := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: false}))
	if len(emitted) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(emitted))
	}
	if emitted[0].Kind != KindSafeZoneExit || emitted[0].Severity != SeverityMedium {
		t.Errorf("unexpected alert: %+v", emitted[0])
	}
}

func TestEngine_ExitSafeZoneWithAnotherStillContainedProducesNoAlert(t *testing.T) {
	e := New(10, time.Second)
	left := safeZone("z1", zone.SeverityMedium)
	stillIn := safeZone("z2", zone.SeverityMedium)
	emitted := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: left, Entered: false}, stillIn))
	if len(emitted) != 0 {
		t.Fatalf("expected no alert when another safe zone is still contained, got %+v", emitted)
	}
}

func TestEngine_DedupSuppressesWithinWindow(t *testing.T) {
	e := New(10, 2*time.Second)
	z := restrictedZone("z1", zone.SeverityHigh)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	withFixedClock(t, base)
	first := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: true}, z))
	if len(first) != 1 {
		t.Fatalf("expected first alert emitted, got %d", len(first))
	}

	withFixedClock(t, base.Add(time.Second))
	second := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: true}, z))
	if len(second) != 0 {
		t.Fatalf("expected second alert within dedup window suppressed, got %d", len(second))
	}

	withFixedClock(t, base.Add(3*time.Second))
	third := e.EmitTransitions("t1", "Jane", types.Point{}, resultFor(geofence.Transition{Zone: z, Entered: true}, z))
	if len(third) != 1 {
		t.Fatalf("expected alert after dedup window elapses, got %d", len(third))
	}
}

func TestEngine_SOSNeverDeduplicated(t *testing.T) {
	e := New(10, time.Hour)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	withFixedClock(t, base)

	e.EmitSOS("t1", "Jane", types.Point{}, KindSOSTriggered, "panic button")
	e.EmitSOS("t1", "Jane", types.Point{}, KindSOSTriggered, "panic button")

	recent := e.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("expected 2 SOS alerts recorded, got %d", len(recent))
	}
}

func TestEngine_SOSResolvedIsDistinctKind(t *testing.T) {
	e := New(10, time.Hour)
	e.EmitSOS("t1", "Jane", types.Point{}, KindSOSTriggered, "panic button")
	e.EmitSOS("t1", "Jane", types.Point{}, KindSOSResolved, "cleared by authority")

	recent := e.Recent(0)
	if recent[0].Kind != KindSOSResolved || recent[1].Kind != KindSOSTriggered {
		t.Fatalf("expected resolved alert newest, got %+v", recent)
	}
}

func TestEngine_RingBufferEvictsOldest(t *testing.T) {
	e := New(3, 0)
	for i := 0; i < 5; i++ {
		e.EmitSOS(types.ID(string(rune('a'+i))), "", types.Point{}, KindSOSTriggered, "")
	}
	recent := e.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected ring capped at 3, got %d", len(recent))
	}
	// newest first: e, d, c
	want := []types.ID{"e", "d", "c"}
	for i, a := range recent {
		if a.TouristID != want[i] {
			t.Errorf("index %d: expected tourist %s, got %s", i, want[i], a.TouristID)
		}
	}
}

func TestEngine_RecentNewestFirst(t *testing.T) {
	e := New(10, 0)
	e.EmitSOS("a", "", types.Point{}, KindSOSTriggered, "")
	e.EmitSOS("b", "", types.Point{}, KindSOSTriggered, "")
	recent := e.Recent(0)
	if recent[0].TouristID != "b" || recent[1].TouristID != "a" {
		t.Fatalf("expected newest-first ordering, got %+v", recent)
	}
}
