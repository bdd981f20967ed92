package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rinkworks/gameclock-server-go/internal/model"
)

type PlayerStatusRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]model.PlayerStatus, error)
	// Upsert writes the status keyed by (session_id, player_id), overwriting
	// any existing row. A player has at most one status per session.
	Upsert(ctx context.Context, status *model.PlayerStatus) error
	// ResetStartTimes rewrites every status clock in the session to the given
	// instant: the long-stoppage timer wipe.
	ResetStartTimes(ctx context.Context, sessionID string, start time.Time, gameTime, playTime int) error
	Delete(ctx context.Context, sessionID, playerID string) error
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PlayerStatusRepository
}

type playerStatusRepo struct {
	db sessionDB
}

func NewPlayerStatusRepository(db *sqlx.DB) PlayerStatusRepository {
	return &playerStatusRepo{db: db}
}

func (r *playerStatusRepo) WithTx(tx *sqlx.Tx) PlayerStatusRepository {
	return &playerStatusRepo{db: tx}
}

func (r *playerStatusRepo) ListBySession(ctx context.Context, sessionID string) ([]model.PlayerStatus, error) {
	statuses := []model.PlayerStatus{}
	err := r.db.SelectContext(ctx, &statuses, `
		SELECT * FROM player_statuses WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *playerStatusRepo) Upsert(ctx context.Context, status *model.PlayerStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_statuses (
			session_id, player_id, zone, effective_side, status_start_time,
			status_start_game_time, status_start_play_time, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, player_id) DO UPDATE SET
			zone = EXCLUDED.zone,
			effective_side = EXCLUDED.effective_side,
			status_start_time = EXCLUDED.status_start_time,
			status_start_game_time = EXCLUDED.status_start_game_time,
			status_start_play_time = EXCLUDED.status_start_play_time,
			updated_at = EXCLUDED.updated_at
	`, status.SessionID, status.PlayerID, status.Zone, status.EffectiveSide,
		status.StatusStartTime, status.StatusStartGameTime, status.StatusStartPlayTime,
		time.Now())
	return err
}

func (r *playerStatusRepo) ResetStartTimes(ctx context.Context, sessionID string, start time.Time, gameTime, playTime int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE player_statuses SET
			status_start_time = $2,
			status_start_game_time = $3,
			status_start_play_time = $4,
			updated_at = $5
		WHERE session_id = $1
	`, sessionID, start, gameTime, playTime, time.Now())
	return err
}

func (r *playerStatusRepo) Delete(ctx context.Context, sessionID, playerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM player_statuses WHERE session_id = $1 AND player_id = $2
	`, sessionID, playerID)
	return err
}

func (r *playerStatusRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM player_statuses WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
