package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rinkworks/gameclock-server-go/internal/clock"
	"github.com/rinkworks/gameclock-server-go/internal/config"
	"github.com/rinkworks/gameclock-server-go/internal/model"
	"github.com/rinkworks/gameclock-server-go/internal/repository"
	"github.com/rinkworks/gameclock-server-go/internal/service"
)

// Mock repositories

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameSession), args.Error(1)
}

func (m *mockSessionRepo) FindByScheduledSession(ctx context.Context, scheduledSessionID string) (*model.GameSession, error) {
	args := m.Called(ctx, scheduledSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameSession), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) Update(ctx context.Context, session *model.GameSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepo) FindEndedBefore(ctx context.Context, cutoff time.Time) ([]model.GameSession, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]model.GameSession), args.Error(1)
}

func (m *mockSessionRepo) WithTx(*sqlx.Tx) repository.GameSessionRepository { return m }

type mockStatusRepo struct {
	mock.Mock
}

func (m *mockStatusRepo) ListBySession(ctx context.Context, sessionID string) ([]model.PlayerStatus, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]model.PlayerStatus), args.Error(1)
}

func (m *mockStatusRepo) Upsert(ctx context.Context, status *model.PlayerStatus) error {
	return m.Called(ctx, status).Error(0)
}

func (m *mockStatusRepo) ResetStartTimes(ctx context.Context, sessionID string, start time.Time, gameTime, playTime int) error {
	return m.Called(ctx, sessionID, start, gameTime, playTime).Error(0)
}

func (m *mockStatusRepo) Delete(ctx context.Context, sessionID, playerID string) error {
	return m.Called(ctx, sessionID, playerID).Error(0)
}

func (m *mockStatusRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStatusRepo) WithTx(*sqlx.Tx) repository.PlayerStatusRepository { return m }

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Insert(ctx context.Context, event *model.GameEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) LatestSnapshot(ctx context.Context, sessionID string) (*model.GameEvent, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameEvent), args.Error(1)
}

func (m *mockEventRepo) LatestByType(ctx context.Context, sessionID string, eventType model.EventType) (*model.GameEvent, error) {
	args := m.Called(ctx, sessionID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameEvent), args.Error(1)
}

func (m *mockEventRepo) DeletedPlayerIDs(ctx context.Context, sessionID string) ([]string, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockEventRepo) ListBySession(ctx context.Context, sessionID string) ([]model.GameEvent, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]model.GameEvent), args.Error(1)
}

func (m *mockEventRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEventRepo) WithTx(*sqlx.Tx) repository.GameEventRepository { return m }

type mockPlayerRepo struct {
	mock.Mock
}

func (m *mockPlayerRepo) ListByScheduledSession(ctx context.Context, scheduledSessionID string) ([]model.Player, error) {
	args := m.Called(ctx, scheduledSessionID)
	return args.Get(0).([]model.Player), args.Error(1)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	sessions := new(mockSessionRepo)
	statuses := new(mockStatusRepo)
	events := new(mockEventRepo)
	players := new(mockPlayerRepo)

	players.On("ListByScheduledSession", mock.Anything, "sched-1").Return([]model.Player{
		{ID: "p1", FirstName: "Anna", LastName: "Berg", JerseyNumber: 7},
		{ID: "p2", FirstName: "Mia", LastName: "Holm", JerseyNumber: 12},
		{ID: "p3", FirstName: "Eva", LastName: "Lind", JerseyNumber: 19},
		{ID: "p4", FirstName: "Ida", LastName: "Falk", JerseyNumber: 23},
	}, nil)
	sessions.On("FindByScheduledSession", mock.Anything, "sched-1").Return(nil, nil)
	sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessions.On("Update", mock.Anything, mock.Anything).Return(nil)
	statuses.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	events.On("Insert", mock.Anything, mock.Anything).Return(nil)

	cfg := &config.Config{
		StoppageTimeoutSeconds: 60,
		SnapshotDebounceMS:     5,
		WriteTimeoutSeconds:    1,
		WriteMaxRetries:        1,
		TickIntervalSeconds:    1,
	}
	manager := service.NewGameManager(cfg, clock.System(), nil, sessions, statuses, events, players)

	eventsHandler := NewEventsHandler(nil, manager)
	return NewGameHandler(manager, eventsHandler).Routes()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGameEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("start creates and returns a running game", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/start", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var state map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		assert.Equal(t, "running", state["phase"])
	})

	t.Run("toggle-play pauses", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/toggle-play", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var state map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		assert.Equal(t, "paused", state["phase"])
	})

	t.Run("goal increments the chosen counter", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/goals", map[string]string{"side": "for"})
		require.Equal(t, http.StatusOK, rec.Code)

		var state map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		assert.Equal(t, float64(1), state["goalsFor"])
		assert.Equal(t, float64(0), state["goalsAgainst"])
	})

	t.Run("goal without side is a 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/goals", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("move places a player on the rink", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/players/p1/move",
			map[string]any{"zone": "rink_d", "index": 0})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/sched-1/board", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Board map[string][]string `json:"board"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"p1"}, resp.Board["rink_d"])
	})

	t.Run("move to an unknown zone is a 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/players/p1/move",
			map[string]any{"zone": "penalty_box", "index": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("move of an unknown player is a 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/players/ghost/move",
			map[string]any{"zone": "rink_d", "index": 0})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("timers include every squad player", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/sched-1/timers", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Timers []map[string]any `json:"timers"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Timers, 4)
	})

	t.Run("end locks the game", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sched-1/end", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodPost, "/sched-1/toggle-play", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ALREADY_ENDED", resp["code"])
	})
}
