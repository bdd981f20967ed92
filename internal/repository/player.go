package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rinkworks/gameclock-server-go/internal/model"
)

// PlayerRepository is the squad provider: a read-only view of the players
// rostered for a scheduled session.
type PlayerRepository interface {
	ListByScheduledSession(ctx context.Context, scheduledSessionID string) ([]model.Player, error)
}

type playerRepo struct {
	db sessionDB
}

func NewPlayerRepository(db *sqlx.DB) PlayerRepository {
	return &playerRepo{db: db}
}

func (r *playerRepo) ListByScheduledSession(ctx context.Context, scheduledSessionID string) ([]model.Player, error) {
	players := []model.Player{}
	err := r.db.SelectContext(ctx, &players, `
		SELECT p.id, p.first_name, p.last_name, p.jersey_number, p.photo_ref
		FROM players p
		JOIN scheduled_session_players ssp ON ssp.player_id = p.id
		WHERE ssp.scheduled_session_id = $1
		ORDER BY p.jersey_number ASC, p.last_name ASC
	`, scheduledSessionID)
	if err != nil {
		return nil, err
	}
	return players, nil
}
