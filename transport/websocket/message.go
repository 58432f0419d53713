package websocket

import "github.com/rocketscienceinc/connectfour-backend/internal/entity"

const (
	EventSnapshot    = "snapshot"
	EventStateUpdate = "state_update"
)

// Message is what subscribers of a game receive.
type Message struct {
	GameID string       `json:"game_id"`
	Event  string       `json:"event"`
	Game   *entity.Game `json:"game,omitempty"`
}
