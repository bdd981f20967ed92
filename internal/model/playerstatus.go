package model

import "time"

// PlayerStatus is the single mutable row per squad player per session. It is
// overwritten, never appended, on every bench/rink boundary crossing.
type PlayerStatus struct {
	SessionID           string    `db:"session_id" json:"sessionId"`
	PlayerID            string    `db:"player_id" json:"playerId"`
	Zone                Zone      `db:"zone" json:"zone"`
	EffectiveSide       Side      `db:"effective_side" json:"effectiveSide"`
	StatusStartTime     time.Time `db:"status_start_time" json:"statusStartTime"`
	StatusStartGameTime int       `db:"status_start_game_time" json:"statusStartGameTime"`
	StatusStartPlayTime int       `db:"status_start_play_time" json:"statusStartPlayTime"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Player is the squad-provider row: read-only input to initial bench placement.
type Player struct {
	ID           string  `db:"id" json:"playerId"`
	FirstName    string  `db:"first_name" json:"firstName"`
	LastName     string  `db:"last_name" json:"lastName"`
	JerseyNumber int     `db:"jersey_number" json:"jerseyNumber"`
	PhotoRef     *string `db:"photo_ref" json:"photoRef,omitempty"`
}
