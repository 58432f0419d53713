package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/transport/websocket"
)

// DefaultGameID is the game served by the top-level routes.
const DefaultGameID = "default"

const (
	msgInvalidColumn   = "Invalid column"
	msgColumnFull      = "Column is full"
	msgGameOver        = "Game over. Please restart to play again."
	msgGameNotFound    = "Game not found"
	msgUnknownGameType = "Unknown game type"
	msgInternalError   = "Internal Server Error"
)

type gameManager interface {
	CreateGame(ctx context.Context, gameType string) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	GetOrCreateGame(ctx context.Context, id, gameType string) (*entity.Game, error)
	DropChip(ctx context.Context, id string, column int) (*entity.Game, error)
	ResetGame(ctx context.Context, id string) (*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error
	WatchGame(ctx context.Context, id string, subscribe func(game *entity.Game) error) error
}

type subscriber interface {
	Subscribe(gameID string, snapshot *entity.Game) (*websocket.Subscriber, error)
}

type moveRequest struct {
	Column *int `json:"column"`
}

type createRequest struct {
	Type string `json:"type"`
}

type moveResponse struct {
	Board         [][]entity.Cell `json:"board"`
	CurrentPlayer string          `json:"current_player"`
	Winner        *string         `json:"winner"`
}

type resetResponse struct {
	Board         [][]entity.Cell   `json:"board"`
	CurrentPlayer string            `json:"current_player"`
	Blocked       []entity.Position `json:"blocked"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger *slog.Logger

	games gameManager
	hub   subscriber
}

func newHandlers(logger *slog.Logger, games gameManager, hub subscriber) *handlers {
	return &handlers{
		logger: logger,
		games:  games,
		hub:    hub,
	}
}

func (that *handlers) getDefault(w http.ResponseWriter, r *http.Request) {
	game, err := that.games.GetOrCreateGame(r.Context(), DefaultGameID, entity.LocalType)
	if err != nil {
		that.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) moveDefault(w http.ResponseWriter, r *http.Request) {
	if !that.ensureDefault(w, r) {
		return
	}

	column, ok := columnFromBody(r)
	that.drop(w, r, DefaultGameID, column, ok)
}

func (that *handlers) playDefault(w http.ResponseWriter, r *http.Request) {
	if !that.ensureDefault(w, r) {
		return
	}

	column, ok := columnFromPath(r)
	that.drop(w, r, DefaultGameID, column, ok)
}

func (that *handlers) resetDefault(w http.ResponseWriter, r *http.Request) {
	if !that.ensureDefault(w, r) {
		return
	}

	that.reset(w, r, DefaultGameID)
}

func (that *handlers) watchDefault(w http.ResponseWriter, r *http.Request) {
	if !that.ensureDefault(w, r) {
		return
	}

	that.watch(w, r, DefaultGameID)
}

func (that *handlers) createGame(w http.ResponseWriter, r *http.Request) {
	req := createRequest{Type: entity.LocalType}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	game, err := that.games.CreateGame(r.Context(), req.Type)
	if err != nil {
		that.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, game)
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.games.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		that.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (that *handlers) deleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.games.DeleteGame(r.Context(), mux.Vars(r)["id"]); err != nil {
		that.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) moveGame(w http.ResponseWriter, r *http.Request) {
	column, ok := columnFromBody(r)
	that.drop(w, r, mux.Vars(r)["id"], column, ok)
}

func (that *handlers) playGame(w http.ResponseWriter, r *http.Request) {
	column, ok := columnFromPath(r)
	that.drop(w, r, mux.Vars(r)["id"], column, ok)
}

func (that *handlers) resetGame(w http.ResponseWriter, r *http.Request) {
	that.reset(w, r, mux.Vars(r)["id"])
}

func (that *handlers) watchGame(w http.ResponseWriter, r *http.Request) {
	that.watch(w, r, mux.Vars(r)["id"])
}

// watch subscribes under the game's lock and only then upgrades the connection,
// so every move committed after the snapshot reaches the client.
func (that *handlers) watch(w http.ResponseWriter, r *http.Request, gameID string) {
	var sub *websocket.Subscriber

	err := that.games.WatchGame(r.Context(), gameID, func(game *entity.Game) error {
		var err error
		sub, err = that.hub.Subscribe(gameID, game)
		return err
	})
	if err != nil {
		that.respondError(w, err)
		return
	}

	sub.Serve(w, r)
}

// drop answers with the move result. ok is false when the column could not be read from the request.
func (that *handlers) drop(w http.ResponseWriter, r *http.Request, gameID string, column int, ok bool) {
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidColumn})
		return
	}

	game, err := that.games.DropChip(r.Context(), gameID, column)
	if err != nil {
		that.respondError(w, err)
		return
	}

	var winner *string
	if game.IsFinished() {
		winner = &game.Winner
	}

	respondJSON(w, http.StatusOK, moveResponse{
		Board:         game.Board,
		CurrentPlayer: game.CurrentPlayer,
		Winner:        winner,
	})
}

func (that *handlers) reset(w http.ResponseWriter, r *http.Request, gameID string) {
	game, err := that.games.ResetGame(r.Context(), gameID)
	if err != nil {
		that.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resetResponse{
		Board:         game.Board,
		CurrentPlayer: game.CurrentPlayer,
		Blocked:       game.Blocked,
	})
}

// ensureDefault makes sure the default game exists, it may have expired from storage.
func (that *handlers) ensureDefault(w http.ResponseWriter, r *http.Request) bool {
	if _, err := that.games.GetOrCreateGame(r.Context(), DefaultGameID, entity.LocalType); err != nil {
		that.respondError(w, err)
		return false
	}

	return true
}

func (that *handlers) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrInvalidColumn):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidColumn})
	case errors.Is(err, apperror.ErrColumnFull):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msgColumnFull})
	case errors.Is(err, apperror.ErrGameOver):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msgGameOver})
	case errors.Is(err, apperror.ErrUnknownGameType):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msgUnknownGameType})
	case errors.Is(err, apperror.ErrGameNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: msgGameNotFound})
	default:
		that.logger.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
	}
}

func columnFromBody(r *http.Request) (int, bool) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Column == nil {
		return 0, false
	}

	return *req.Column, true
}

func columnFromPath(r *http.Request) (int, bool) {
	column, err := strconv.Atoi(mux.Vars(r)["column"])
	if err != nil {
		return 0, false
	}

	return column, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}
