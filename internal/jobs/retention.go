package jobs

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/database"
	"github.com/rinkworks/gameclock-server-go/internal/repository"
)

// RetentionJob prunes events, statuses and the session row of games that
// ended longer ago than the retention window. Each session is removed in one
// transaction so replay data never half-disappears.
type RetentionJob struct {
	db        *database.DB
	sessions  repository.GameSessionRepository
	statuses  repository.PlayerStatusRepository
	events    repository.GameEventRepository
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewRetentionJob(
	db *database.DB,
	sessions repository.GameSessionRepository,
	statuses repository.PlayerStatusRepository,
	events repository.GameEventRepository,
	retention time.Duration,
	interval time.Duration,
) *RetentionJob {
	return &RetentionJob{
		db:        db,
		sessions:  sessions,
		statuses:  statuses,
		events:    events,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.prune()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *RetentionJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	expired, err := j.sessions.FindEndedBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("retention: failed to list expired sessions")
		return
	}

	pruned := 0
	for _, session := range expired {
		err := j.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := j.events.WithTx(tx).DeleteBySession(ctx, session.ID); err != nil {
				return err
			}
			if _, err := j.statuses.WithTx(tx).DeleteBySession(ctx, session.ID); err != nil {
				return err
			}
			return j.sessions.WithTx(tx).Delete(ctx, session.ID)
		})
		if err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("retention: failed to prune session")
			continue
		}
		pruned++
	}

	if pruned > 0 {
		log.Info().Int("count", pruned).Time("cutoff", cutoff).Msg("retention: pruned ended sessions")
	}
}
