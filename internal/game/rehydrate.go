package game

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/rinkworks/gameclock-server-go/internal/errors"
	"github.com/rinkworks/gameclock-server-go/internal/model"
)

// Rehydrate reconstructs the controller's state purely from persisted rows:
// the authoritative GameSession, the deleted-player set, the most recent
// player_positions snapshot and the PlayerStatus rows. Client-held state is
// never consulted.
//
// Rehydrating an existing session must never re-run StartGame's bench
// initialization; the bench split only happens when no snapshot was ever
// written. Calling Rehydrate on an already-hydrated controller is a
// programming error and panics: continuing silently could wipe a live game's
// placement.
func (c *Controller) Rehydrate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hydrated {
		panic("game: controller for scheduled session " + c.scheduledSessionID + " rehydrated twice")
	}

	squad, err := c.players.ListByScheduledSession(ctx, c.scheduledSessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	c.squad = make(map[string]model.Player, len(squad))
	c.squadOrder = make([]string, 0, len(squad))
	for _, p := range squad {
		c.squad[p.ID] = p
		c.squadOrder = append(c.squadOrder, p.ID)
	}

	session, err := c.sessions.FindByScheduledSession(ctx, c.scheduledSessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	c.session = session

	if session == nil {
		c.board.SeedBench(c.squadOrder)
		c.hydrated = true
		log.Debug().
			Str("scheduledSessionId", c.scheduledSessionID).
			Int("squadSize", len(squad)).
			Msg("no persisted session, board initialized to bench")
		return nil
	}

	deletedIDs, err := c.events.DeletedPlayerIDs(ctx, session.ID)
	if err != nil {
		return apperrors.Database(err)
	}
	c.deleted = make(map[string]bool, len(deletedIDs))
	for _, id := range deletedIDs {
		c.deleted[id] = true
	}

	allowed := make(map[string]bool, len(squad))
	for _, id := range c.squadOrder {
		if !c.deleted[id] {
			allowed[id] = true
		}
	}

	if err := c.seedBoard(ctx, session, allowed); err != nil {
		return err
	}

	if session.HasEnded {
		// Terminal session: board is loaded for read-only display, nothing
		// else to reconstruct.
		c.hydrated = true
		log.Info().
			Str("sessionId", session.ID).
			Msg("rehydrated ended session, read-only")
		return nil
	}

	statuses, err := c.statuses.ListBySession(ctx, session.ID)
	if err != nil {
		return apperrors.Database(err)
	}
	c.statusByID = make(map[string]*model.PlayerStatus, len(statuses))
	for i := range statuses {
		status := statuses[i]
		if !allowed[status.PlayerID] || !c.board.Contains(status.PlayerID) {
			log.Warn().
				Str("sessionId", session.ID).
				Str("playerId", status.PlayerID).
				Str("code", string(apperrors.ErrCodeInconsistentRehydration)).
				Msg("persisted status references a player missing from squad or snapshot, dropping")
			continue
		}
		c.statusByID[status.PlayerID] = &status
	}

	if !session.Running() {
		// Recover the pause instant from the last play_stop so frozen timers
		// read the same value they showed before the reload.
		stop, err := c.events.LatestByType(ctx, session.ID, model.EventPlayStop)
		if err != nil {
			return apperrors.Database(err)
		}
		if stop != nil {
			pausedAt := stop.EventTime
			c.pauseStartedAt = &pausedAt
		} else {
			pausedAt := session.UpdatedAt
			c.pauseStartedAt = &pausedAt
		}
	}

	c.hydrated = true
	log.Info().
		Str("sessionId", session.ID).
		Str("phase", string(c.phaseLocked())).
		Int("boardPlayers", len(c.board.Players())).
		Int("deletedPlayers", len(deletedIDs)).
		Msg("session rehydrated")
	return nil
}

func (c *Controller) seedBoard(ctx context.Context, session *model.GameSession, allowed map[string]bool) error {
	snapshot, err := c.events.LatestSnapshot(ctx, session.ID)
	if err != nil {
		return apperrors.Database(err)
	}

	if snapshot == nil {
		// No snapshot was ever persisted for this session; bench placement
		// is the documented fallback, not a re-initialization.
		ids := make([]string, 0, len(c.squadOrder))
		for _, id := range c.squadOrder {
			if allowed[id] {
				ids = append(ids, id)
			}
		}
		c.board.SeedBench(ids)
		return nil
	}

	positions, err := snapshot.Positions()
	if err != nil || positions == nil {
		log.Error().
			Err(err).
			Str("sessionId", session.ID).
			Str("eventId", snapshot.ID).
			Str("code", string(apperrors.ErrCodeInconsistentRehydration)).
			Msg("snapshot payload unreadable, falling back to bench placement")
		ids := make([]string, 0, len(c.squadOrder))
		for _, id := range c.squadOrder {
			if allowed[id] {
				ids = append(ids, id)
			}
		}
		c.board.SeedBench(ids)
		return nil
	}

	c.board.Seed(positions, allowed)
	return nil
}
