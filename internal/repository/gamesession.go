package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rinkworks/gameclock-server-go/internal/model"
)

type GameSessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.GameSession, error)
	// FindByScheduledSession returns the authoritative row for a scheduled
	// session: the active one if present, otherwise the most recent.
	FindByScheduledSession(ctx context.Context, scheduledSessionID string) (*model.GameSession, error)
	Create(ctx context.Context, session *model.GameSession) error
	Update(ctx context.Context, session *model.GameSession) error
	Delete(ctx context.Context, id string) error
	FindEndedBefore(ctx context.Context, cutoff time.Time) ([]model.GameSession, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) GameSessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type gameSessionRepo struct {
	db sessionDB
}

func NewGameSessionRepository(db *sqlx.DB) GameSessionRepository {
	return &gameSessionRepo{db: db}
}

func (r *gameSessionRepo) WithTx(tx *sqlx.Tx) GameSessionRepository {
	return &gameSessionRepo{db: tx}
}

func (r *gameSessionRepo) FindByID(ctx context.Context, id string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM game_sessions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *gameSessionRepo) FindByScheduledSession(ctx context.Context, scheduledSessionID string) (*model.GameSession, error) {
	var session model.GameSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM game_sessions
		WHERE scheduled_session_id = $1
		ORDER BY is_active DESC, created_at DESC
		LIMIT 1
	`, scheduledSessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *gameSessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO game_sessions (
			id, scheduled_session_id, is_active, has_ended, game_start_time,
			current_play_start_time, total_play_time_seconds, goals_for,
			goals_against, game_end_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, session.ID, session.ScheduledSessionID, session.IsActive, session.HasEnded,
		session.GameStartTime, session.CurrentPlayStartTime, session.TotalPlayTimeSeconds,
		session.GoalsFor, session.GoalsAgainst, session.GameEndTime, now)
	return err
}

func (r *gameSessionRepo) Update(ctx context.Context, session *model.GameSession) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE game_sessions SET
			is_active = $2,
			has_ended = $3,
			current_play_start_time = $4,
			total_play_time_seconds = $5,
			goals_for = $6,
			goals_against = $7,
			game_end_time = $8,
			updated_at = $9
		WHERE id = $1
	`, session.ID, session.IsActive, session.HasEnded, session.CurrentPlayStartTime,
		session.TotalPlayTimeSeconds, session.GoalsFor, session.GoalsAgainst,
		session.GameEndTime, time.Now())
	return err
}

func (r *gameSessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM game_sessions WHERE id = $1
	`, id)
	return err
}

func (r *gameSessionRepo) FindEndedBefore(ctx context.Context, cutoff time.Time) ([]model.GameSession, error) {
	sessions := []model.GameSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM game_sessions
		WHERE has_ended = TRUE AND game_end_time < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
