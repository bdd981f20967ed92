package game

import (
	"slices"

	"github.com/rinkworks/gameclock-server-go/internal/model"
)

// ZoneBoard holds the ordered player placement across the six zones. It is a
// runtime-only structure: what gets persisted is Snapshot(), as the payload
// of a player_positions event, and what comes back on rehydration is Seed().
//
// ZoneBoard is not safe for concurrent use; the owning controller serializes
// access.
type ZoneBoard struct {
	zones  map[model.Zone][]string
	zoneOf map[string]model.Zone
}

func NewZoneBoard() *ZoneBoard {
	b := &ZoneBoard{
		zones:  make(map[model.Zone][]string, len(model.Zones)),
		zoneOf: make(map[string]model.Zone),
	}
	for _, z := range model.Zones {
		b.zones[z] = []string{}
	}
	return b
}

// Place appends the player to the end of a zone. The player must not already
// be on the board.
func (b *ZoneBoard) Place(playerID string, zone model.Zone) bool {
	if _, ok := b.zoneOf[playerID]; ok {
		return false
	}
	b.zones[zone] = append(b.zones[zone], playerID)
	b.zoneOf[playerID] = zone
	return true
}

// Move removes the player from their current zone and inserts them at index
// (clamped to the target zone's bounds) in the target zone. Relative order of
// every other player is preserved. Returns the zone the player came from.
func (b *ZoneBoard) Move(playerID string, to model.Zone, index int) (model.Zone, bool) {
	from, ok := b.zoneOf[playerID]
	if !ok {
		return "", false
	}

	b.removeFromZone(playerID, from)

	list := b.zones[to]
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	b.zones[to] = slices.Insert(list, index, playerID)
	b.zoneOf[playerID] = to

	return from, true
}

// Remove takes the player off the board entirely.
func (b *ZoneBoard) Remove(playerID string) bool {
	zone, ok := b.zoneOf[playerID]
	if !ok {
		return false
	}
	b.removeFromZone(playerID, zone)
	delete(b.zoneOf, playerID)
	return true
}

func (b *ZoneBoard) removeFromZone(playerID string, zone model.Zone) {
	list := b.zones[zone]
	if i := slices.Index(list, playerID); i >= 0 {
		b.zones[zone] = slices.Delete(list, i, i+1)
	}
}

// ZoneOf returns the zone currently holding the player.
func (b *ZoneBoard) ZoneOf(playerID string) (model.Zone, bool) {
	z, ok := b.zoneOf[playerID]
	return z, ok
}

func (b *ZoneBoard) Contains(playerID string) bool {
	_, ok := b.zoneOf[playerID]
	return ok
}

// Players returns every player on the board, in zone order.
func (b *ZoneBoard) Players() []string {
	out := make([]string, 0, len(b.zoneOf))
	for _, z := range model.Zones {
		out = append(out, b.zones[z]...)
	}
	return out
}

// Snapshot returns a deep copy of the zone -> players mapping. This is
// exactly the payload persisted as a player_positions event.
func (b *ZoneBoard) Snapshot() map[model.Zone][]string {
	out := make(map[model.Zone][]string, len(model.Zones))
	for _, z := range model.Zones {
		out[z] = slices.Clone(b.zones[z])
	}
	return out
}

// Seed replaces the board contents from a persisted snapshot, keeping only
// players present in allowed (squad membership minus deletions). Unknown
// zones in the snapshot are dropped.
func (b *ZoneBoard) Seed(snapshot map[model.Zone][]string, allowed map[string]bool) {
	b.zones = make(map[model.Zone][]string, len(model.Zones))
	b.zoneOf = make(map[string]model.Zone)
	for _, z := range model.Zones {
		b.zones[z] = []string{}
	}
	for zone, players := range snapshot {
		if !zone.Valid() {
			continue
		}
		for _, id := range players {
			if !allowed[id] {
				continue
			}
			if _, dup := b.zoneOf[id]; dup {
				continue
			}
			b.zones[zone] = append(b.zones[zone], id)
			b.zoneOf[id] = zone
		}
	}
}

// SeedBench places players on the bench when no snapshot exists: defense and
// forward benches get an even split, in roster order.
func (b *ZoneBoard) SeedBench(playerIDs []string) {
	b.zones = make(map[model.Zone][]string, len(model.Zones))
	b.zoneOf = make(map[string]model.Zone)
	for _, z := range model.Zones {
		b.zones[z] = []string{}
	}
	half := (len(playerIDs) + 1) / 2
	for i, id := range playerIDs {
		if _, dup := b.zoneOf[id]; dup {
			continue
		}
		zone := model.ZoneBenchD
		if i >= half {
			zone = model.ZoneBenchF
		}
		b.zones[zone] = append(b.zones[zone], id)
		b.zoneOf[id] = zone
	}
}
