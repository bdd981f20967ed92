package game

import (
	"time"

	"github.com/rinkworks/gameclock-server-go/internal/clock"
	"github.com/rinkworks/gameclock-server-go/internal/model"
)

// ColorBand is the presentation band for a timer value. The breakpoints are
// part of the client contract and must not drift.
type ColorBand string

const (
	BandLightGreen ColorBand = "light_green"
	BandGreen      ColorBand = "green"
	BandLightRed   ColorBand = "light_red"
	BandRed        ColorBand = "red"
	BandDarkRed    ColorBand = "dark_red"

	BandYellow    ColorBand = "yellow"
	BandWhite     ColorBand = "white"
	BandLightBlue ColorBand = "light_blue"
	BandBlue      ColorBand = "blue"
	BandDarkBlue  ColorBand = "dark_blue"
)

// Rink band breakpoints, in seconds.
const (
	rinkGreenAt    = 40
	rinkLightRedAt = 120
	rinkRedAt      = 150
	rinkDarkRedAt  = 180
)

// Bench band breakpoints, in seconds.
const (
	benchWhiteAt     = 60
	benchLightBlueAt = 120
	benchBlueAt      = 174
	benchDarkBlueAt  = 300
)

// BandFor maps (elapsed seconds, side) to a color band.
func BandFor(side model.Side, elapsed int) ColorBand {
	if side == model.SideRink {
		switch {
		case elapsed < rinkGreenAt:
			return BandLightGreen
		case elapsed < rinkLightRedAt:
			return BandGreen
		case elapsed < rinkRedAt:
			return BandLightRed
		case elapsed < rinkDarkRedAt:
			return BandRed
		default:
			return BandDarkRed
		}
	}

	switch {
	case elapsed < benchWhiteAt:
		return BandYellow
	case elapsed < benchLightBlueAt:
		return BandWhite
	case elapsed < benchBlueAt:
		return BandLightBlue
	case elapsed < benchDarkBlueAt:
		return BandBlue
	default:
		return BandDarkBlue
	}
}

// ElapsedSeconds computes a player's time in their current zone-side.
//
// The status clock starts at statusStartTime, except that a placement made
// before the game officially started is timed from game start. While paused
// the value is frozen at the instant play stopped; a game that never started
// reads zero. The result is recomputed on every call: callers must not assume
// continuity across a stoppage reset.
func ElapsedSeconds(now time.Time, session *model.GameSession, status *model.PlayerStatus, pauseStart *time.Time) int {
	if session == nil || status == nil {
		return 0
	}

	effectiveStart := status.StatusStartTime
	if effectiveStart.Before(session.GameStartTime) {
		effectiveStart = session.GameStartTime
	}

	switch {
	case session.HasEnded:
		if session.GameEndTime == nil {
			return 0
		}
		return clock.SecondsBetween(effectiveStart, *session.GameEndTime)
	case session.Running():
		return clock.SecondsBetween(effectiveStart, now)
	default:
		if pauseStart == nil {
			return 0
		}
		return clock.SecondsBetween(effectiveStart, *pauseStart)
	}
}

// GameTimeSeconds is the wall-clock game timer: seconds since game start,
// frozen once the game has ended.
func GameTimeSeconds(now time.Time, session *model.GameSession) int {
	if session == nil {
		return 0
	}
	if session.HasEnded && session.GameEndTime != nil {
		return clock.SecondsBetween(session.GameStartTime, *session.GameEndTime)
	}
	return clock.SecondsBetween(session.GameStartTime, now)
}

// PlayTimeSeconds is the play clock: accumulated running time, ticking only
// while play is live.
func PlayTimeSeconds(now time.Time, session *model.GameSession) int {
	if session == nil {
		return 0
	}
	total := session.TotalPlayTimeSeconds
	if session.Running() {
		total += clock.SecondsBetween(*session.CurrentPlayStartTime, now)
	}
	return total
}
