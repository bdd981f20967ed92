package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/rinkworks/gameclock-server-go/internal/errors"
	"github.com/rinkworks/gameclock-server-go/internal/game"
	"github.com/rinkworks/gameclock-server-go/internal/httputil"
	"github.com/rinkworks/gameclock-server-go/internal/model"
	"github.com/rinkworks/gameclock-server-go/internal/service"
)

type GameHandler struct {
	manager *service.GameManager
	events  *EventsHandler
}

func NewGameHandler(manager *service.GameManager, events *EventsHandler) *GameHandler {
	return &GameHandler{manager: manager, events: events}
}

func (h *GameHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{scheduledSessionID}", func(r chi.Router) {
		r.Post("/start", h.StartGame)
		r.Post("/toggle-play", h.TogglePlay)
		r.Post("/goals", h.RecordGoal)
		r.Post("/players/{playerID}/move", h.MovePlayer)
		r.Delete("/players/{playerID}", h.DeletePlayer)
		r.Post("/end", h.EndGame)
		r.Delete("/", h.ClearGameData)

		r.Get("/", h.GetGameState)
		r.Get("/board", h.GetBoard)
		r.Get("/timers", h.GetTimers)
		r.Get("/events", h.events.ServeHTTP)
	})

	return r
}

// POST /v1/games/{scheduledSessionID}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}

	state, err := ctrl.StartGame()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// POST /v1/games/{scheduledSessionID}/toggle-play
func (h *GameHandler) TogglePlay(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}

	state, err := ctrl.TogglePlay()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

type recordGoalRequest struct {
	Side model.GoalSide `json:"side"`
}

// POST /v1/games/{scheduledSessionID}/goals
func (h *GameHandler) RecordGoal(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}

	var req recordGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Side == "" {
		httputil.WriteError(w, apperrors.MissingRequired("side"))
		return
	}

	state, err := ctrl.RecordGoal(req.Side)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

type movePlayerRequest struct {
	Zone  model.Zone `json:"zone"`
	Index int        `json:"index"`
}

// POST /v1/games/{scheduledSessionID}/players/{playerID}/move
func (h *GameHandler) MovePlayer(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}
	playerID := chi.URLParam(r, "playerID")

	var req movePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Zone == "" {
		httputil.WriteError(w, apperrors.MissingRequired("zone"))
		return
	}

	if err := ctrl.MovePlayer(playerID, req.Zone, req.Index); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"board": ctrl.Board(),
	})
}

// DELETE /v1/games/{scheduledSessionID}/players/{playerID}
func (h *GameHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}
	playerID := chi.URLParam(r, "playerID")

	if err := ctrl.DeletePlayer(playerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"board": ctrl.Board(),
	})
}

// POST /v1/games/{scheduledSessionID}/end
func (h *GameHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}

	state, err := ctrl.EndGame(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// DELETE /v1/games/{scheduledSessionID}
func (h *GameHandler) ClearGameData(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}

	if err := ctrl.ClearGameData(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"state": ctrl.GameState(),
		"board": ctrl.Board(),
	})
}

// GET /v1/games/{scheduledSessionID}
func (h *GameHandler) GetGameState(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ctrl.GameState())
}

// GET /v1/games/{scheduledSessionID}/board
func (h *GameHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"board": ctrl.Board(),
	})
}

// GET /v1/games/{scheduledSessionID}/timers
func (h *GameHandler) GetTimers(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.controller(w, r)
	if err != nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"timers": ctrl.Timers(),
	})
}

func (h *GameHandler) controller(w http.ResponseWriter, r *http.Request) (*game.Controller, error) {
	scheduledSessionID := chi.URLParam(r, "scheduledSessionID")
	if scheduledSessionID == "" {
		err := apperrors.MissingRequired("scheduledSessionID")
		httputil.WriteError(w, err)
		return nil, err
	}

	ctrl, err := h.manager.Controller(r.Context(), scheduledSessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, err
	}
	return ctrl, nil
}
