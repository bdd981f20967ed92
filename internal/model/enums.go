package model

// Zone is one of the six player buckets on the rotation board.
type Zone string

const (
	ZoneBenchD  Zone = "bench_d"
	ZoneBenchF  Zone = "bench_f"
	ZoneBenchGK Zone = "bench_gk"
	ZoneRinkD   Zone = "rink_d"
	ZoneRinkF   Zone = "rink_f"
	ZoneRinkGK  Zone = "rink_gk"
)

// Zones lists every zone in board order.
var Zones = []Zone{ZoneBenchD, ZoneBenchF, ZoneBenchGK, ZoneRinkD, ZoneRinkF, ZoneRinkGK}

func (z Zone) Valid() bool {
	switch z {
	case ZoneBenchD, ZoneBenchF, ZoneBenchGK, ZoneRinkD, ZoneRinkF, ZoneRinkGK:
		return true
	}
	return false
}

// Side returns the coarse bench/rink grouping for the zone.
func (z Zone) Side() Side {
	switch z {
	case ZoneRinkD, ZoneRinkF, ZoneRinkGK:
		return SideRink
	default:
		return SideBench
	}
}

type Side string

const (
	SideBench Side = "bench"
	SideRink  Side = "rink"
)

type EventType string

const (
	EventPlayStart       EventType = "play_start"
	EventPlayStop        EventType = "play_stop"
	EventPlayerOn        EventType = "player_on"
	EventPlayerOff       EventType = "player_off"
	EventGoalFor         EventType = "goal_for"
	EventGoalAgainst     EventType = "goal_against"
	EventPlayerDeleted   EventType = "player_deleted"
	EventPlayerPositions EventType = "player_positions"
	EventGameEnd         EventType = "game_end"
)

// GamePhase is the controller's state machine position.
type GamePhase string

const (
	PhaseNotStarted GamePhase = "not_started"
	PhaseRunning    GamePhase = "running"
	PhasePaused     GamePhase = "paused"
	PhaseEnded      GamePhase = "ended"
)

// GoalSide identifies which counter a goal increments.
type GoalSide string

const (
	GoalSideFor     GoalSide = "for"
	GoalSideAgainst GoalSide = "against"
)

func (s GoalSide) Valid() bool {
	return s == GoalSideFor || s == GoalSideAgainst
}
