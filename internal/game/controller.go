package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/clock"
	apperrors "github.com/rinkworks/gameclock-server-go/internal/errors"
	"github.com/rinkworks/gameclock-server-go/internal/model"
	"github.com/rinkworks/gameclock-server-go/internal/persist"
	"github.com/rinkworks/gameclock-server-go/internal/repository"
)

// Controller owns the live state of one game: the session row, the zone
// board, per-player statuses and the play/pause clock. Every mutation is
// serialized through its mutex; reads take a read lock so the 1Hz tick can
// run concurrently with moves.
//
// Mutations apply in memory first and schedule their backend writes through
// an ordered async writer. In-memory state is the source of truth until the
// next rehydration; a failed write never rolls it back.
type Controller struct {
	mu sync.RWMutex

	scheduledSessionID string
	clk                clock.Clock
	stoppageTimeout    time.Duration

	sessions repository.GameSessionRepository
	statuses repository.PlayerStatusRepository
	events   repository.GameEventRepository
	players  repository.PlayerRepository

	writer    *persist.Writer
	snapshots *persist.Coordinator

	session        *model.GameSession
	squad          map[string]model.Player
	squadOrder     []string
	board          *ZoneBoard
	statusByID     map[string]*model.PlayerStatus
	deleted        map[string]bool
	pauseStartedAt *time.Time
	hydrated       bool
}

// Deps carries everything a Controller needs. All fields are required.
type Deps struct {
	ScheduledSessionID string
	Clock              clock.Clock
	StoppageTimeout    time.Duration
	SnapshotDebounce   time.Duration
	WriteTimeout       time.Duration
	WriteMaxRetries    int

	Sessions repository.GameSessionRepository
	Statuses repository.PlayerStatusRepository
	Events   repository.GameEventRepository
	Players  repository.PlayerRepository
}

func NewController(deps Deps) *Controller {
	c := &Controller{
		scheduledSessionID: deps.ScheduledSessionID,
		clk:                deps.Clock,
		stoppageTimeout:    deps.StoppageTimeout,
		sessions:           deps.Sessions,
		statuses:           deps.Statuses,
		events:             deps.Events,
		players:            deps.Players,
		board:              NewZoneBoard(),
		squad:              make(map[string]model.Player),
		statusByID:         make(map[string]*model.PlayerStatus),
		deleted:            make(map[string]bool),
	}
	c.writer = persist.NewWriter(deps.WriteTimeout, deps.WriteMaxRetries)
	c.snapshots = persist.NewCoordinator(
		deps.ScheduledSessionID, c.writeSnapshot,
		deps.SnapshotDebounce, deps.WriteTimeout, deps.WriteMaxRetries,
	)
	return c
}

func (c *Controller) ScheduledSessionID() string {
	return c.scheduledSessionID
}

// GameState is the render-facing view of the session.
type GameState struct {
	Phase           model.GamePhase `json:"phase"`
	GoalsFor        int             `json:"goalsFor"`
	GoalsAgainst    int             `json:"goalsAgainst"`
	GameTimeSeconds int             `json:"gameTimeSeconds"`
	PlayTimeSeconds int             `json:"playTimeSeconds"`
	GameStartTime   *time.Time      `json:"gameStartTime,omitempty"`
	GameEndTime     *time.Time      `json:"gameEndTime,omitempty"`
}

// PlayerTimer is one player's live timer reading.
type PlayerTimer struct {
	PlayerID       string     `json:"playerId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	JerseyNumber   int        `json:"jerseyNumber"`
	Zone           model.Zone `json:"zone"`
	Side           model.Side `json:"side"`
	ElapsedSeconds int        `json:"elapsedSeconds"`
	Band           ColorBand  `json:"band"`
}

// Tick is the payload broadcast to live clients.
type Tick struct {
	ScheduledSessionID string        `json:"scheduledSessionId"`
	State              *GameState    `json:"state"`
	Timers             []PlayerTimer `json:"timers"`
}

// StartGame creates the session on first use, placing the whole squad on the
// bench split evenly between bench-D and bench-F. An inactive but unended
// session is reactivated in place, keeping zones and timers. Calling it on an
// already-live session is an idempotent no-op.
func (c *Controller) StartGame() (*GameState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	switch {
	case c.session != nil && c.session.HasEnded:
		return nil, apperrors.AlreadyEnded()
	case c.session == nil:
		c.startNew(now)
	case !c.session.IsActive:
		c.reactivate(now)
	}

	return c.stateLocked(now), nil
}

func (c *Controller) startNew(now time.Time) {
	playStart := now
	c.session = &model.GameSession{
		ID:                   uuid.NewString(),
		ScheduledSessionID:   c.scheduledSessionID,
		IsActive:             true,
		GameStartTime:        now,
		CurrentPlayStartTime: &playStart,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	c.board.SeedBench(c.activeSquadIDs())
	c.statusByID = make(map[string]*model.PlayerStatus, len(c.squadOrder))

	sess := *c.session
	c.writer.Enqueue("create game session", func(ctx context.Context) error {
		return c.sessions.Create(ctx, &sess)
	})

	for _, id := range c.board.Players() {
		zone, _ := c.board.ZoneOf(id)
		status := &model.PlayerStatus{
			SessionID:       c.session.ID,
			PlayerID:        id,
			Zone:            zone,
			EffectiveSide:   zone.Side(),
			StatusStartTime: now,
		}
		c.statusByID[id] = status
		c.scheduleStatusUpsert(status)
	}

	c.scheduleEventInsert(c.newEvent(now, model.EventPlayStart, nil, nil))
	c.snapshots.Save()

	log.Info().
		Str("scheduledSessionId", c.scheduledSessionID).
		Str("sessionId", c.session.ID).
		Int("squadSize", len(c.squadOrder)).
		Msg("game started")
}

func (c *Controller) reactivate(now time.Time) {
	playStart := now
	c.session.IsActive = true
	c.session.CurrentPlayStartTime = &playStart
	c.pauseStartedAt = nil

	c.scheduleSessionUpdate()
	c.scheduleEventInsert(c.newEvent(now, model.EventPlayStart, nil, map[string]any{
		"resume": true,
	}))

	log.Info().
		Str("sessionId", c.session.ID).
		Msg("game reactivated, zones and timers preserved")
}

// TogglePlay stops the play clock when running and restarts it when stopped.
// A stoppage at least as long as the configured timeout resets every
// player's status clock on resume.
func (c *Controller) TogglePlay() (*GameState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	if c.session == nil {
		return nil, apperrors.GameNotStarted()
	}
	if c.session.HasEnded {
		return nil, apperrors.AlreadyEnded()
	}

	if c.session.Running() {
		c.session.TotalPlayTimeSeconds += clock.SecondsBetween(*c.session.CurrentPlayStartTime, now)
		c.session.CurrentPlayStartTime = nil
		pausedAt := now
		c.pauseStartedAt = &pausedAt

		c.scheduleSessionUpdate()
		c.scheduleEventInsert(c.newEvent(now, model.EventPlayStop, nil, nil))

		log.Info().
			Str("sessionId", c.session.ID).
			Int("totalPlaySeconds", c.session.TotalPlayTimeSeconds).
			Msg("play stopped")
		return c.stateLocked(now), nil
	}

	var stoppage time.Duration
	if c.pauseStartedAt != nil {
		stoppage = now.Sub(*c.pauseStartedAt)
	}

	meta := map[string]any{
		"resume":          true,
		"stoppageSeconds": int(stoppage / time.Second),
	}
	if stoppage >= c.stoppageTimeout {
		c.resetAllTimers(now)
		meta["timersReset"] = true
	}

	playStart := now
	c.session.CurrentPlayStartTime = &playStart
	c.pauseStartedAt = nil

	c.scheduleSessionUpdate()
	c.scheduleEventInsert(c.newEvent(now, model.EventPlayStart, nil, meta))

	log.Info().
		Str("sessionId", c.session.ID).
		Dur("stoppage", stoppage).
		Msg("play resumed")
	return c.stateLocked(now), nil
}

// resetAllTimers rewrites every status clock to now: the long-stoppage rule.
// It applies uniformly, bench players included, so every shift clock
// resynchronizes after an intermission.
func (c *Controller) resetAllTimers(now time.Time) {
	gameTime := GameTimeSeconds(now, c.session)
	playTime := PlayTimeSeconds(now, c.session)

	for _, status := range c.statusByID {
		status.StatusStartTime = now
		status.StatusStartGameTime = gameTime
		status.StatusStartPlayTime = playTime
	}

	sessionID := c.session.ID
	c.writer.Enqueue("reset status clocks", func(ctx context.Context) error {
		return c.statuses.ResetStartTimes(ctx, sessionID, now, gameTime, playTime)
	})

	log.Info().
		Str("sessionId", sessionID).
		Int("players", len(c.statusByID)).
		Msg("stoppage timeout exceeded, all status clocks reset")
}

// RecordGoal increments one score counter and records the event, tagged with
// the current rink occupants. Timers are unaffected.
func (c *Controller) RecordGoal(side model.GoalSide) (*GameState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	if !side.Valid() {
		return nil, apperrors.InvalidInput("side", "must be \"for\" or \"against\"")
	}
	if c.session == nil {
		return nil, apperrors.GameNotStarted()
	}
	if c.session.HasEnded {
		return nil, apperrors.AlreadyEnded()
	}

	eventType := model.EventGoalFor
	if side == model.GoalSideAgainst {
		eventType = model.EventGoalAgainst
		c.session.GoalsAgainst++
	} else {
		c.session.GoalsFor++
	}

	c.scheduleSessionUpdate()
	c.scheduleEventInsert(c.newEvent(now, eventType, nil, map[string]any{
		"onRink": c.rinkOccupants(),
	}))

	log.Info().
		Str("sessionId", c.session.ID).
		Str("side", string(side)).
		Int("goalsFor", c.session.GoalsFor).
		Int("goalsAgainst", c.session.GoalsAgainst).
		Msg("goal recorded")
	return c.stateLocked(now), nil
}

func (c *Controller) rinkOccupants() map[model.Zone][]string {
	snap := c.board.Snapshot()
	return map[model.Zone][]string{
		model.ZoneRinkD:  snap[model.ZoneRinkD],
		model.ZoneRinkF:  snap[model.ZoneRinkF],
		model.ZoneRinkGK: snap[model.ZoneRinkGK],
	}
}

// MovePlayer relocates a player to index (clamped) in the target zone. Only
// a move crossing the bench/rink boundary restarts the player's status clock
// and records a player_on/player_off event; same-side moves just reorder the
// board. Every move schedules a debounced board snapshot.
func (c *Controller) MovePlayer(playerID string, target model.Zone, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	if !target.Valid() {
		return apperrors.InvalidInput("zone", "unknown zone "+string(target))
	}
	if c.session == nil {
		return apperrors.GameNotStarted()
	}
	if c.session.HasEnded {
		return apperrors.AlreadyEnded()
	}
	if c.deleted[playerID] || !c.board.Contains(playerID) {
		return apperrors.PlayerNotFound(playerID)
	}

	from, _ := c.board.Move(playerID, target, index)

	if from.Side() != target.Side() {
		status := c.statusByID[playerID]
		if status == nil {
			// Dropped during an inconsistent rehydration; recreate.
			status = &model.PlayerStatus{SessionID: c.session.ID, PlayerID: playerID}
			c.statusByID[playerID] = status
		}
		status.Zone = target
		status.EffectiveSide = target.Side()
		status.StatusStartTime = now
		status.StatusStartGameTime = GameTimeSeconds(now, c.session)
		status.StatusStartPlayTime = PlayTimeSeconds(now, c.session)
		c.scheduleStatusUpsert(status)

		eventType := model.EventPlayerOff
		if target.Side() == model.SideRink {
			eventType = model.EventPlayerOn
		}
		pid := playerID
		c.scheduleEventInsert(c.newEvent(now, eventType, &pid, map[string]any{
			"fromZone": from,
			"toZone":   target,
		}))
	}

	c.snapshots.Save()

	log.Debug().
		Str("sessionId", c.session.ID).
		Str("playerId", playerID).
		Str("from", string(from)).
		Str("to", string(target)).
		Int("index", index).
		Msg("player moved")
	return nil
}

// DeletePlayer removes the player from the board and their status row, and
// records a player_deleted event. Deletion is permanent for the session.
func (c *Controller) DeletePlayer(playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	if c.session == nil {
		return apperrors.GameNotStarted()
	}
	if c.session.HasEnded {
		return apperrors.AlreadyEnded()
	}
	if c.deleted[playerID] || !c.board.Contains(playerID) {
		return apperrors.PlayerNotFound(playerID)
	}

	c.board.Remove(playerID)
	delete(c.statusByID, playerID)
	c.deleted[playerID] = true

	sessionID := c.session.ID
	pid := playerID
	c.writer.Enqueue("delete player status", func(ctx context.Context) error {
		return c.statuses.Delete(ctx, sessionID, pid)
	})
	c.scheduleEventInsert(c.newEvent(now, model.EventPlayerDeleted, &pid, nil))
	c.snapshots.Save()

	log.Info().
		Str("sessionId", sessionID).
		Str("playerId", playerID).
		Msg("player removed from session")
	return nil
}

// EndGame terminates the session. The state machine accepts no further
// mutation afterwards; pending snapshot writes are flushed so the final
// board is durable.
func (c *Controller) EndGame(ctx context.Context) (*GameState, error) {
	c.mu.Lock()

	now := c.clk.Now()

	if c.session == nil {
		c.mu.Unlock()
		return nil, apperrors.GameNotStarted()
	}
	if c.session.HasEnded {
		c.mu.Unlock()
		return nil, apperrors.AlreadyEnded()
	}

	if c.session.Running() {
		c.session.TotalPlayTimeSeconds += clock.SecondsBetween(*c.session.CurrentPlayStartTime, now)
		c.session.CurrentPlayStartTime = nil
	}
	endTime := now
	c.session.IsActive = false
	c.session.HasEnded = true
	c.session.GameEndTime = &endTime
	c.pauseStartedAt = nil

	c.scheduleSessionUpdate()
	c.scheduleEventInsert(c.newEvent(now, model.EventGameEnd, nil, nil))

	state := c.stateLocked(now)
	sessionID := c.session.ID
	c.mu.Unlock()

	// Flush outside the lock so timer reads keep flowing while the final
	// snapshot lands.
	if err := c.snapshots.Flush(ctx); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("final snapshot flush failed")
	}

	log.Info().
		Str("sessionId", sessionID).
		Int("goalsFor", state.GoalsFor).
		Int("goalsAgainst", state.GoalsAgainst).
		Msg("game ended")
	return state, nil
}

// ClearGameData hard-deletes every row for the session and resets in-memory
// state to not-started with the full squad back on the bench. Administrative
// reset only; runs synchronously.
func (c *Controller) ClearGameData(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		// Let queued writes land first so the deletes below are final.
		c.writer.Drain()

		sessionID := c.session.ID
		if _, err := c.events.DeleteBySession(ctx, sessionID); err != nil {
			return apperrors.Database(err)
		}
		if _, err := c.statuses.DeleteBySession(ctx, sessionID); err != nil {
			return apperrors.Database(err)
		}
		if err := c.sessions.Delete(ctx, sessionID); err != nil {
			return apperrors.Database(err)
		}
		log.Info().Str("sessionId", sessionID).Msg("game data cleared")
	}

	c.session = nil
	c.statusByID = make(map[string]*model.PlayerStatus)
	c.deleted = make(map[string]bool)
	c.pauseStartedAt = nil
	c.board.SeedBench(c.activeSquadIDs())

	return nil
}

// Close flushes pending persistence and stops the async writer. The
// controller must not be used afterwards.
func (c *Controller) Close(ctx context.Context) {
	if err := c.snapshots.Flush(ctx); err != nil {
		log.Error().Err(err).Str("scheduledSessionId", c.scheduledSessionID).Msg("snapshot flush on close failed")
	}
	c.writer.Close()
}

// Drain blocks until every scheduled write has been attempted.
func (c *Controller) Drain() {
	c.writer.Drain()
}

// GameState returns the current phase, score and clocks.
func (c *Controller) GameState() *GameState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked(c.clk.Now())
}

// Board returns the zone -> players mapping.
func (c *Controller) Board() map[model.Zone][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Snapshot()
}

// ElapsedSeconds returns one player's time in their current zone-side.
func (c *Controller) ElapsedSeconds(playerID string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.deleted[playerID] || !c.board.Contains(playerID) {
		return 0, apperrors.PlayerNotFound(playerID)
	}
	return ElapsedSeconds(c.clk.Now(), c.session, c.statusByID[playerID], c.pauseStartedAt), nil
}

// Timers returns every boarded player's timer reading, in zone order.
func (c *Controller) Timers() []PlayerTimer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clk.Now()
	out := make([]PlayerTimer, 0, len(c.squad))
	for _, id := range c.board.Players() {
		zone, _ := c.board.ZoneOf(id)
		elapsed := ElapsedSeconds(now, c.session, c.statusByID[id], c.pauseStartedAt)
		timer := PlayerTimer{
			PlayerID:       id,
			Zone:           zone,
			Side:           zone.Side(),
			ElapsedSeconds: elapsed,
			Band:           BandFor(zone.Side(), elapsed),
		}
		if p, ok := c.squad[id]; ok {
			timer.FirstName = p.FirstName
			timer.LastName = p.LastName
			timer.JerseyNumber = p.JerseyNumber
		}
		out = append(out, timer)
	}
	return out
}

// Tick builds the payload broadcast to live clients.
func (c *Controller) Tick() *Tick {
	return &Tick{
		ScheduledSessionID: c.scheduledSessionID,
		State:              c.GameState(),
		Timers:             c.Timers(),
	}
}

func (c *Controller) stateLocked(now time.Time) *GameState {
	state := &GameState{Phase: c.phaseLocked()}
	if c.session == nil {
		return state
	}
	state.GoalsFor = c.session.GoalsFor
	state.GoalsAgainst = c.session.GoalsAgainst
	state.GameTimeSeconds = GameTimeSeconds(now, c.session)
	state.PlayTimeSeconds = PlayTimeSeconds(now, c.session)
	start := c.session.GameStartTime
	state.GameStartTime = &start
	state.GameEndTime = c.session.GameEndTime
	return state
}

func (c *Controller) phaseLocked() model.GamePhase {
	switch {
	case c.session == nil:
		return model.PhaseNotStarted
	case c.session.HasEnded:
		return model.PhaseEnded
	case c.session.Running():
		return model.PhaseRunning
	default:
		return model.PhasePaused
	}
}

func (c *Controller) activeSquadIDs() []string {
	ids := make([]string, 0, len(c.squadOrder))
	for _, id := range c.squadOrder {
		if !c.deleted[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Controller) newEvent(now time.Time, eventType model.EventType, playerID *string, meta map[string]any) *model.GameEvent {
	event := &model.GameEvent{
		ID:              uuid.NewString(),
		SessionID:       c.session.ID,
		EventType:       eventType,
		PlayerID:        playerID,
		EventTime:       now,
		GameTimeSeconds: GameTimeSeconds(now, c.session),
		PlayTimeSeconds: PlayTimeSeconds(now, c.session),
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err == nil {
			msg := json.RawMessage(raw)
			event.Metadata = &msg
		}
	}
	return event
}

func (c *Controller) scheduleEventInsert(event *model.GameEvent) {
	c.writer.Enqueue("insert "+string(event.EventType)+" event", func(ctx context.Context) error {
		return c.events.Insert(ctx, event)
	})
}

func (c *Controller) scheduleSessionUpdate() {
	sess := *c.session
	c.writer.Enqueue("update game session", func(ctx context.Context) error {
		return c.sessions.Update(ctx, &sess)
	})
}

func (c *Controller) scheduleStatusUpsert(status *model.PlayerStatus) {
	st := *status
	c.writer.Enqueue("upsert player status", func(ctx context.Context) error {
		return c.statuses.Upsert(ctx, &st)
	})
}

// writeSnapshot persists the current board as a player_positions event. It
// is the coordinator's SaveFunc: it reads the board at execution time so the
// latest arrangement wins.
func (c *Controller) writeSnapshot(ctx context.Context) error {
	c.mu.RLock()
	if c.session == nil {
		c.mu.RUnlock()
		return nil
	}
	now := c.clk.Now()
	event := c.newEvent(now, model.EventPlayerPositions, nil, nil)
	payload := model.PositionsPayload{Positions: c.board.Snapshot()}
	c.mu.RUnlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := json.RawMessage(raw)
	event.Metadata = &msg

	return c.events.Insert(ctx, event)
}
