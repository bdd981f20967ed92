package model

import (
	"encoding/json"
	"time"
)

// GameEvent is the append-only history row. Events are immutable once
// written; player_positions events carry a full board snapshot in Metadata
// and only the most recent one is authoritative on replay.
type GameEvent struct {
	ID              string           `db:"id" json:"id"`
	SessionID       string           `db:"session_id" json:"sessionId"`
	EventType       EventType        `db:"event_type" json:"eventType"`
	PlayerID        *string          `db:"player_id" json:"playerId,omitempty"`
	EventTime       time.Time        `db:"event_time" json:"eventTime"`
	GameTimeSeconds int              `db:"game_time_seconds" json:"gameTimeSeconds"`
	PlayTimeSeconds int              `db:"play_time_seconds" json:"playTimeSeconds"`
	Metadata        *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
}

// PositionsPayload is the Metadata shape of a player_positions event.
type PositionsPayload struct {
	Positions map[Zone][]string `json:"positions"`
}

// Positions decodes the snapshot payload of a player_positions event.
func (e *GameEvent) Positions() (map[Zone][]string, error) {
	if e.Metadata == nil {
		return nil, nil
	}
	var payload PositionsPayload
	if err := json.Unmarshal(*e.Metadata, &payload); err != nil {
		return nil, err
	}
	return payload.Positions, nil
}
