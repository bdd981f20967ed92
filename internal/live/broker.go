package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/rinkworks/gameclock-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second

	clientBufferSize = 64
)

// Event is one frame of the live game feed: a 1Hz tick or a state-change
// notification.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one connected spectator of a game feed.
type Client struct {
	ScheduledSessionID string
	Events             chan Event
	Done               chan struct{}
}

// Broker fans game ticks out to SSE clients. Publishes go through redis
// pub/sub so every server instance sees every game's feed. One feed
// goroutine runs per watched session; it stops when the last client leaves
// so a rewatched session never ends up with duplicate feeds.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // scheduledSessionID -> set of clients
	feeds   map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc

	// openFeed runs the per-session subscription loop; replaced in tests.
	openFeed func(ctx context.Context, scheduledSessionID string)
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		feeds:   make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
	b.openFeed = b.subscribeToRedis
	return b
}

// Subscribe registers a client for one game's feed. The first subscriber of
// a game opens the underlying redis subscription.
func (b *Broker) Subscribe(scheduledSessionID string) *Client {
	client := &Client{
		ScheduledSessionID: scheduledSessionID,
		Events:             make(chan Event, clientBufferSize),
		Done:               make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[scheduledSessionID] == nil {
		b.clients[scheduledSessionID] = make(map[*Client]bool)
		feedCtx, cancel := context.WithCancel(b.ctx)
		b.feeds[scheduledSessionID] = cancel
		go b.openFeed(feedCtx, scheduledSessionID)
	}
	b.clients[scheduledSessionID][client] = true
	clientCount := len(b.clients[scheduledSessionID])
	b.mu.Unlock()

	log.Info().
		Str("scheduledSessionId", scheduledSessionID).
		Int("clientCount", clientCount).
		Msg("live feed client subscribed")

	return client
}

// Unsubscribe removes a client. The last client out stops the session's
// feed goroutine.
func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.ScheduledSessionID]
	if !ok {
		return
	}

	delete(clients, client)
	close(client.Done)

	if len(clients) == 0 {
		delete(b.clients, client.ScheduledSessionID)
		if cancel, ok := b.feeds[client.ScheduledSessionID]; ok {
			cancel()
			delete(b.feeds, client.ScheduledSessionID)
		}
	}

	log.Info().
		Str("scheduledSessionId", client.ScheduledSessionID).
		Int("clientCount", len(clients)).
		Msg("live feed client unsubscribed")
}

// Publish sends an event to every subscriber of the game, on this instance
// and any other.
func (b *Broker) Publish(ctx context.Context, scheduledSessionID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.GameChannel(scheduledSessionID)
	return b.redis.Publish(ctx, channel, data).Err()
}

// HasSubscribers reports whether any client on this instance watches the
// game. The tick loop skips publishing for unwatched games.
func (b *Broker) HasSubscribers(scheduledSessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[scheduledSessionID]) > 0
}

func (b *Broker) subscribeToRedis(ctx context.Context, scheduledSessionID string) {
	channel := redisclient.GameChannel(scheduledSessionID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to unmarshal live event")
				continue
			}

			b.broadcast(scheduledSessionID, event)
		}
	}
}

func (b *Broker) broadcast(scheduledSessionID string, event Event) {
	b.mu.RLock()
	clients := b.clients[scheduledSessionID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			// Slow client: drop the tick rather than stall the feed. The
			// next tick carries full state anyway.
			log.Warn().
				Str("scheduledSessionId", scheduledSessionID).
				Msg("live client buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.feeds = make(map[string]context.CancelFunc)
}
