// Package consent gates how much of a tourist's identity and position is
// exposed, and whether a reported position may be processed at all. This
// engine never owns the privacy-preference CRUD surface an authenticated
// tourist uses to set their own preferences — that lives upstream of this
// service — so Gate only consults a narrow lookup of whatever was last
// reported to it and treats the absence of a record as no consent.
package consent

import (
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"sentinel/internal/types"
)

// Record is one tourist's current privacy preferences, as reported by the
// upstream consent system. Absence of a Record for a tourist is treated as
// no consent, never as an implicit grant.
type Record struct {
	LocationSharing bool
	// RetentionDays bounds how long this tourist's history rows may be kept;
	// expected range [1, 365], enforced by the caller setting the record.
	RetentionDays int
	// Anonymize requests that this tourist's identity and position be
	// degraded (pseudonymized ID, generalized coordinates, truncated name)
	// in persisted history rows, instead of withheld entirely. Live hub
	// events are not degraded.
	Anonymize      bool
	ConsentGiven   bool
	ConsentGivenAt time.Time
}

// ErrConsentRequired is returned by Allow when a tourist has not granted
// location-sharing consent, or has never reported a consent decision at all.
var ErrConsentRequired = types.NewError(types.KindConsentRequired, "tourist has not granted location-sharing consent")

// Gate decides, per tourist, whether a reported position may be processed
// at all and how much of it must be degraded before it is surfaced or
// stored.
type Gate struct {
	key              []byte
	roundingDecimals int

	mu       sync.RWMutex
	consents map[types.ID]Record
}

func New(anonymizationKey string, roundingDecimals int) *Gate {
	return &Gate{
		key:              []byte(anonymizationKey),
		roundingDecimals: roundingDecimals,
		consents:         make(map[types.ID]Record),
	}
}

// SetConsent records id's current privacy preferences, overwriting any
// prior record. This is the integration point the upstream consent system
// calls into whenever a tourist changes their preferences; this engine
// never originates a consent decision on its own.
func (g *Gate) SetConsent(id types.ID, r Record) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consents[id] = r
}

// Allow resolves whether a position update from id may proceed, and
// whether it must be anonymized if so. A tourist who has never reported a
// consent decision, withdrawn location sharing, or whose consent was never
// explicitly given is refused with ErrConsentRequired.
func (g *Gate) Allow(id types.ID) (anonymize bool, err error) {
	g.mu.RLock()
	r, ok := g.consents[id]
	g.mu.RUnlock()
	if !ok || !r.ConsentGiven || !r.LocationSharing {
		return false, ErrConsentRequired
	}
	return r.Anonymize, nil
}

// RetentionDays returns the retention period a tourist's consent record
// requested, or 0 if no record is on file — callers treat 0 as "use the
// engine-wide default" rather than "never retain".
func (g *Gate) RetentionDays(id types.ID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.consents[id].RetentionDays
}

// Pseudonymize returns a stable, non-reversible stand-in for id. Two calls
// with the same id and key always produce the same output, so downstream
// aggregation (e.g. "how many rows for this tourist today") still works for
// a tourist whose consent asks for anonymization, without ever storing the
// real identifier.
func (g *Gate) Pseudonymize(id types.ID) string {
	mac, err := blake2b.New256(g.key)
	if err != nil {
		// Only non-nil when the key exceeds blake2b's 64-byte key limit,
		// which New() callers control; fall back to an unkeyed hash rather
		// than panic in a path that gates every position update.
		mac, _ = blake2b.New256(nil)
	}
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Generalize rounds a coordinate to the configured number of decimal
// places, so the history row of a tourist whose consent asks for
// anonymization never holds the position at full precision.
func (g *Gate) Generalize(p types.Point) types.Point {
	factor := math.Pow(10, float64(g.roundingDecimals))
	return types.Point{
		Lat: math.Round(p.Lat*factor) / factor,
		Lng: math.Round(p.Lng*factor) / factor,
	}
}

// TruncateName reduces a display name to its first character followed by
// asterisks of the original length, for the history row of a tourist whose
// consent asks for anonymization.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) == 0 {
		return ""
	}
	return string(runes[0]) + strings.Repeat("*", len(runes))
}
