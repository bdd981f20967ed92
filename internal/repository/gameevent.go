package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/rinkworks/gameclock-server-go/internal/model"
)

// GameEventRepository is insert-only for normal operation: rows are never
// updated, and deleted only by the administrative clear and retention paths.
type GameEventRepository interface {
	Insert(ctx context.Context, event *model.GameEvent) error
	// LatestSnapshot returns the most recent player_positions event for the
	// session, or nil when none has been written yet.
	LatestSnapshot(ctx context.Context, sessionID string) (*model.GameEvent, error)
	// LatestByType returns the most recent event of the given type, or nil.
	LatestByType(ctx context.Context, sessionID string, eventType model.EventType) (*model.GameEvent, error)
	// DeletedPlayerIDs returns every player with a player_deleted event in
	// the session. Deletions are cumulative and permanent for the session.
	DeletedPlayerIDs(ctx context.Context, sessionID string) ([]string, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.GameEvent, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) GameEventRepository
}

type gameEventRepo struct {
	db sessionDB
}

func NewGameEventRepository(db *sqlx.DB) GameEventRepository {
	return &gameEventRepo{db: db}
}

func (r *gameEventRepo) WithTx(tx *sqlx.Tx) GameEventRepository {
	return &gameEventRepo{db: tx}
}

func (r *gameEventRepo) Insert(ctx context.Context, event *model.GameEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO game_events (
			id, session_id, event_type, player_id, event_time,
			game_time_seconds, play_time_seconds, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.ID, event.SessionID, event.EventType, event.PlayerID, event.EventTime,
		event.GameTimeSeconds, event.PlayTimeSeconds, event.Metadata)
	return err
}

func (r *gameEventRepo) LatestSnapshot(ctx context.Context, sessionID string) (*model.GameEvent, error) {
	return r.LatestByType(ctx, sessionID, model.EventPlayerPositions)
}

func (r *gameEventRepo) LatestByType(ctx context.Context, sessionID string, eventType model.EventType) (*model.GameEvent, error) {
	var event model.GameEvent
	err := r.db.GetContext(ctx, &event, `
		SELECT * FROM game_events
		WHERE session_id = $1 AND event_type = $2
		ORDER BY event_time DESC
		LIMIT 1
	`, sessionID, eventType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gameEventRepo) DeletedPlayerIDs(ctx context.Context, sessionID string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT player_id FROM game_events
		WHERE session_id = $1 AND event_type = $2 AND player_id IS NOT NULL
	`, sessionID, model.EventPlayerDeleted)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gameEventRepo) ListBySession(ctx context.Context, sessionID string) ([]model.GameEvent, error) {
	events := []model.GameEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM game_events
		WHERE session_id = $1
		ORDER BY event_time ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *gameEventRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM game_events WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
