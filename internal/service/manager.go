package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/clock"
	"github.com/rinkworks/gameclock-server-go/internal/config"
	"github.com/rinkworks/gameclock-server-go/internal/game"
	"github.com/rinkworks/gameclock-server-go/internal/live"
	"github.com/rinkworks/gameclock-server-go/internal/repository"
)

// GameManager hands out one rehydrated Controller per scheduled session and
// keeps it cached for the life of the process. Cross-session operations are
// fully independent; each controller serializes its own mutations.
type GameManager struct {
	mu          sync.Mutex
	controllers map[string]*game.Controller

	cfg    *config.Config
	clk    clock.Clock
	broker *live.Broker

	sessions repository.GameSessionRepository
	statuses repository.PlayerStatusRepository
	events   repository.GameEventRepository
	players  repository.PlayerRepository

	done chan struct{}
}

func NewGameManager(
	cfg *config.Config,
	clk clock.Clock,
	broker *live.Broker,
	sessions repository.GameSessionRepository,
	statuses repository.PlayerStatusRepository,
	events repository.GameEventRepository,
	players repository.PlayerRepository,
) *GameManager {
	return &GameManager{
		controllers: make(map[string]*game.Controller),
		cfg:         cfg,
		clk:         clk,
		broker:      broker,
		sessions:    sessions,
		statuses:    statuses,
		events:      events,
		players:     players,
		done:        make(chan struct{}),
	}
}

// Controller returns the live controller for a scheduled session,
// rehydrating it from the store on first touch.
func (m *GameManager) Controller(ctx context.Context, scheduledSessionID string) (*game.Controller, error) {
	m.mu.Lock()
	if ctrl, ok := m.controllers[scheduledSessionID]; ok {
		m.mu.Unlock()
		return ctrl, nil
	}
	m.mu.Unlock()

	// Rehydrate outside the registry lock: it hits the store and other
	// sessions should not wait on it.
	ctrl := game.NewController(game.Deps{
		ScheduledSessionID: scheduledSessionID,
		Clock:              m.clk,
		StoppageTimeout:    m.cfg.StoppageTimeout(),
		SnapshotDebounce:   m.cfg.SnapshotDebounce(),
		WriteTimeout:       m.cfg.WriteTimeout(),
		WriteMaxRetries:    m.cfg.WriteMaxRetries,
		Sessions:           m.sessions,
		Statuses:           m.statuses,
		Events:             m.events,
		Players:            m.players,
	})
	if err := ctrl.Rehydrate(ctx); err != nil {
		ctrl.Close(ctx)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.controllers[scheduledSessionID]; ok {
		// Lost the race; discard ours.
		go ctrl.Close(context.Background())
		return existing, nil
	}
	m.controllers[scheduledSessionID] = ctrl
	return ctrl, nil
}

// Start launches the tick loop that feeds the live broker.
func (m *GameManager) Start() {
	go m.run()
	log.Info().Dur("interval", m.cfg.TickInterval()).Msg("game tick loop started")
}

func (m *GameManager) run() {
	ticker := time.NewTicker(m.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.publishTicks()
		}
	}
}

func (m *GameManager) publishTicks() {
	m.mu.Lock()
	controllers := make([]*game.Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		controllers = append(controllers, ctrl)
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.TickInterval())
	defer cancel()

	for _, ctrl := range controllers {
		id := ctrl.ScheduledSessionID()
		if !m.broker.HasSubscribers(id) {
			continue
		}

		data, err := json.Marshal(ctrl.Tick())
		if err != nil {
			log.Error().Err(err).Str("scheduledSessionId", id).Msg("failed to marshal tick")
			continue
		}
		if err := m.broker.Publish(ctx, id, live.Event{Type: "tick", Data: data}); err != nil {
			log.Warn().Err(err).Str("scheduledSessionId", id).Msg("failed to publish tick")
		}
	}
}

// Shutdown stops the tick loop and drains every controller's pending writes
// so the final board state of each game is durable.
func (m *GameManager) Shutdown(ctx context.Context) {
	close(m.done)

	m.mu.Lock()
	controllers := make([]*game.Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		controllers = append(controllers, ctrl)
	}
	m.controllers = make(map[string]*game.Controller)
	m.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Close(ctx)
	}
	log.Info().Int("controllers", len(controllers)).Msg("game manager stopped")
}
