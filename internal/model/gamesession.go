package model

import "time"

// GameSession is the persisted per-match row. Once HasEnded is true the row
// is terminal and the engine rejects every further mutation.
type GameSession struct {
	ID                   string     `db:"id" json:"id"`
	ScheduledSessionID   string     `db:"scheduled_session_id" json:"scheduledSessionId"`
	IsActive             bool       `db:"is_active" json:"isActive"`
	HasEnded             bool       `db:"has_ended" json:"hasEnded"`
	GameStartTime        time.Time  `db:"game_start_time" json:"gameStartTime"`
	CurrentPlayStartTime *time.Time `db:"current_play_start_time" json:"currentPlayStartTime,omitempty"`
	TotalPlayTimeSeconds int        `db:"total_play_time_seconds" json:"totalPlayTimeSeconds"`
	GoalsFor             int        `db:"goals_for" json:"goalsFor"`
	GoalsAgainst         int        `db:"goals_against" json:"goalsAgainst"`
	GameEndTime          *time.Time `db:"game_end_time" json:"gameEndTime,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// Running reports whether the play clock is ticking.
func (s *GameSession) Running() bool {
	return s.CurrentPlayStartTime != nil
}
