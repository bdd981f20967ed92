package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rinkworks/gameclock-server-go/internal/errors"
	"github.com/rinkworks/gameclock-server-go/internal/httputil"
	"github.com/rinkworks/gameclock-server-go/internal/live"
	"github.com/rinkworks/gameclock-server-go/internal/service"
)

// EventsHandler streams the live game feed (1Hz ticks) over SSE.
type EventsHandler struct {
	broker  *live.Broker
	manager *service.GameManager
}

func NewEventsHandler(broker *live.Broker, manager *service.GameManager) *EventsHandler {
	return &EventsHandler{
		broker:  broker,
		manager: manager,
	}
}

// GET /v1/games/{scheduledSessionID}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scheduledSessionID := chi.URLParam(r, "scheduledSessionID")
	if scheduledSessionID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("scheduledSessionID"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	// Touching the controller forces rehydration, so the first tick after
	// subscribing reflects real state.
	ctrl, err := h.manager.Controller(r.Context(), scheduledSessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(scheduledSessionID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("scheduledSessionId", scheduledSessionID).
		Msg("live feed connection established")

	// Snapshot of current state so the client renders before the first tick.
	if data, err := json.Marshal(ctrl.Tick()); err == nil {
		h.sendEvent(w, flusher, live.Event{Type: "tick", Data: data})
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(live.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("scheduledSessionId", scheduledSessionID).
				Msg("live feed closed by client")
			return

		case <-client.Done:
			log.Debug().
				Str("scheduledSessionId", scheduledSessionID).
				Msg("live feed closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event live.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
