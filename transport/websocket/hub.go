package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

const (
	sendBufferSize  = 16
	eventBufferSize = 256
)

var ErrHubStopped = errors.New("hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// event carries exactly one of its fields. Everything travels through one queue,
// so a subscriber only sees updates published after it subscribed.
type event struct {
	subscribe   *client
	unsubscribe *client
	broadcast   *Message
}

// Hub fans game state out to every connection watching that game.
// All subscriber bookkeeping happens on the Run goroutine.
type Hub struct {
	logger *slog.Logger

	games map[string]map[*client]struct{}

	events chan event

	done chan struct{}
}

// Subscriber is registered with the hub and buffers updates until Serve connects it.
type Subscriber struct {
	client *client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "websocket_hub"),

		games: make(map[string]map[*client]struct{}),

		events: make(chan event, eventBufferSize),

		done: make(chan struct{}),
	}
}

// Run processes subscriptions and broadcasts until ctx is canceled.
func (that *Hub) Run(ctx context.Context) {
	defer func() {
		close(that.done)

		for _, clients := range that.games {
			for c := range clients {
				close(c.send)
			}
		}
		that.games = nil
	}()

	for {
		select {
		case ev := <-that.events:
			switch {
			case ev.subscribe != nil:
				that.registerClient(ev.subscribe)
			case ev.unsubscribe != nil:
				that.unregisterClient(ev.unsubscribe)
			default:
				that.broadcastMessage(ev.broadcast)
			}

		case <-ctx.Done():
			that.logger.Info("hub stopped")
			return
		}
	}
}

// Publish queues the game state for every subscriber of gameID.
func (that *Hub) Publish(gameID string, game *entity.Game) {
	msg := &Message{
		GameID: gameID,
		Event:  EventStateUpdate,
		Game:   game,
	}

	select {
	case that.events <- event{broadcast: msg}:
	case <-that.done:
	}
}

// Subscribe registers a subscriber for gameID whose first message is snapshot.
// Callers hold the game's lock so no update can be published between reading
// snapshot and queueing the subscription.
func (that *Hub) Subscribe(gameID string, snapshot *entity.Game) (*Subscriber, error) {
	data, err := encode(&Message{GameID: gameID, Event: EventSnapshot, Game: snapshot})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	c := &client{
		hub:    that,
		send:   make(chan []byte, sendBufferSize),
		gameID: gameID,
	}
	c.send <- data

	select {
	case that.events <- event{subscribe: c}:
	case <-that.done:
		return nil, ErrHubStopped
	}

	return &Subscriber{client: c}, nil
}

// Serve upgrades the request and starts streaming the buffered and future updates.
// The subscriber is dropped when the upgrade fails.
func (that *Subscriber) Serve(w http.ResponseWriter, r *http.Request) {
	c := that.client

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.hub.logger.Error("failed to upgrade connection", "gameID", c.gameID, "error", err)
		c.leave()
		return
	}
	c.conn = conn

	go c.writePump()
	go c.readPump()
}

func (that *Hub) registerClient(c *client) {
	if that.games[c.gameID] == nil {
		that.games[c.gameID] = make(map[*client]struct{})
	}
	that.games[c.gameID][c] = struct{}{}

	that.logger.Debug("client subscribed", "gameID", c.gameID, "clients", len(that.games[c.gameID]))
}

func (that *Hub) unregisterClient(c *client) {
	clients, ok := that.games[c.gameID]
	if !ok {
		return
	}

	if _, ok = clients[c]; !ok {
		return
	}

	delete(clients, c)
	close(c.send)

	if len(clients) == 0 {
		delete(that.games, c.gameID)
	}

	that.logger.Debug("client unsubscribed", "gameID", c.gameID, "clients", len(clients))
}

func (that *Hub) broadcastMessage(msg *Message) {
	clients, ok := that.games[msg.GameID]
	if !ok {
		return
	}

	data, err := encode(msg)
	if err != nil {
		that.logger.Error("failed to encode message", "gameID", msg.GameID, "error", err)
		return
	}

	for c := range clients {
		select {
		case c.send <- data:
		default:
			// slow consumer
			that.unregisterClient(c)
		}
	}
}

func encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
