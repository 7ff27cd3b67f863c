package tourist

import (
	"sync"
	"testing"
	"time"

	"sentinel/internal/types"
)

func TestStore_GetUnseenReturnsNil(t *testing.T) {
	s := NewStore()
	if got := s.Get("nobody"); got != nil {
		t.Errorf("expected nil for unseen tourist, got %+v", got)
	}
}

func TestStore_WithLockCreatesOnFirstUse(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.WithLock("t1", func(st *State) {
		st.LastSeenAt = now
		st.Name = "Jane Doe"
	})
	got := s.Get("t1")
	if got == nil {
		t.Fatal("expected state to exist after WithLock")
	}
	if !got.LastSeenAt.Equal(now) {
		t.Errorf("expected LastSeenAt %v, got %v", now, got.LastSeenAt)
	}
	if got.Name != "Jane Doe" {
		t.Errorf("expected name to persist, got %q", got.Name)
	}
	if got.Status != StatusSafe {
		t.Errorf("expected default status safe, got %s", got.Status)
	}
}

func TestStore_GetReturnsDefensiveCopy(t *testing.T) {
	s := NewStore()
	s.WithLock("t1", func(st *State) {
		st.ActiveZoneIDs["z1"] = struct{}{}
	})
	copy1 := s.Get("t1")
	copy1.ActiveZoneIDs["z2"] = struct{}{}

	copy2 := s.Get("t1")
	if _, ok := copy2.ActiveZoneIDs["z2"]; ok {
		t.Error("mutating a returned copy must not affect store state")
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	s.WithLock("t1", func(st *State) {})
	s.Delete("t1")
	if got := s.Get("t1"); got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestStore_Len(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.WithLock(types.ID(string(rune('a'+i))), func(st *State) {})
	}
	if got := s.Len(); got != 10 {
		t.Errorf("expected 10 tracked tourists, got %d", got)
	}
}

// TestStore_ConcurrentDistinctTouristsDoNotRace exercises many goroutines
// each owning a distinct tourist ID to confirm sharded per-key state never
// races across shards.
func TestStore_ConcurrentDistinctTouristsDoNotRace(t *testing.T) {
	s := NewStore()
	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := types.ID(intToID(i))
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			for zoneIdx := 0; zoneIdx < 50; zoneIdx++ {
				s.WithLock(id, func(st *State) {
					st.ActiveZoneIDs[types.ID(intToID(zoneIdx))] = struct{}{}
				})
			}
		}(id)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		id := types.ID(intToID(i))
		got := s.Get(id)
		if got == nil || len(got.ActiveZoneIDs) != 50 {
			t.Fatalf("tourist %s: expected 50 recorded zones, got %+v", id, got)
		}
	}
}

// TestStore_ConcurrentSameTouristSerializes confirms WithLock is truly
// exclusive per tourist: interleaved mutations on one ID never lose an
// update.
func TestStore_ConcurrentSameTouristSerializes(t *testing.T) {
	s := NewStore()
	const attempts = 500
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.WithLock("shared", func(st *State) {
				st.ActiveZoneIDs[types.ID(intToID(i))] = struct{}{}
			})
		}(i)
	}
	wg.Wait()

	got := s.Get("shared")
	if len(got.ActiveZoneIDs) != attempts {
		t.Errorf("expected %d recorded zones after %d concurrent inserts, got %d", attempts, attempts, len(got.ActiveZoneIDs))
	}
}

func intToID(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 0, 6)
	for i > 0 || len(b) == 0 {
		b = append(b, letters[i%26])
		i /= 26
	}
	return string(b)
}
