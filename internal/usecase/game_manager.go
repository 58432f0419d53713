package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/pkg"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type botService interface {
	MakeTurn(game *entity.Game, rng *rand.Rand) error
}

type publisher interface {
	Publish(gameID string, game *entity.Game)
}

// BoardSettings is the shape every new game is dealt with.
type BoardSettings struct {
	Rows         int
	Cols         int
	BlockedCount int
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

// GameManager owns game sessions. Moves, resets and deletes on one game are serialized;
// different games run independently.
type GameManager struct {
	logger *slog.Logger

	gameRepo   gameRepo
	botService botService
	publisher  publisher
	board      BoardSettings

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*gameLock
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, botService botService, publisher publisher, board BoardSettings, rng *rand.Rand) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo:   gameRepo,
		botService: botService,
		publisher:  publisher,
		board:      board,

		rng:   rng,
		locks: make(map[string]*gameLock),
	}
}

func (that *GameManager) CreateGame(ctx context.Context, gameType string) (*entity.Game, error) {
	gameID, err := pkg.GenerateGameID()
	if err != nil {
		return nil, fmt.Errorf("error generating game ID: %w", err)
	}

	unlock := that.lock(gameID)
	defer unlock()

	return that.createGame(ctx, gameID, gameType)
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// WatchGame hands the current state of the game to subscribe while holding the game's lock,
// so no move can be committed between the snapshot and the subscription.
func (that *GameManager) WatchGame(ctx context.Context, id string, subscribe func(game *entity.Game) error) error {
	unlock := that.lock(id)
	defer unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	if err = subscribe(game); err != nil {
		return fmt.Errorf("failed to subscribe to game: %w", err)
	}

	return nil
}

// GetOrCreateGame loads the game with the given id, creating it when the store has none.
func (that *GameManager) GetOrCreateGame(ctx context.Context, id, gameType string) (*entity.Game, error) {
	unlock := that.lock(id)
	defer unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrGameNotFound) {
		return that.createGame(ctx, id, gameType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// DropChip plays column for the player whose turn it is. In a bot game the bot answers
// in the same critical section, so clients always see it is their turn again.
func (that *GameManager) DropChip(ctx context.Context, id string, column int) (*entity.Game, error) {
	log := that.logger.With("method", "DropChip", "gameID", id, "column", column)

	unlock := that.lock(id)
	defer unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if _, err = game.DropChip(column); err != nil {
		return nil, fmt.Errorf("failed to drop chip: %w", err)
	}

	if game.IsWithBot() && !game.IsFinished() && game.CurrentPlayer == entity.Player2 {
		that.rngMu.Lock()
		err = that.botService.MakeTurn(game, that.rng)
		that.rngMu.Unlock()

		if err != nil {
			return nil, fmt.Errorf("bot failed to make turn: %w", err)
		}
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if game.IsFinished() {
		log.Info("game finished", "winner", game.Winner, "moves", game.Moves)
	} else {
		log.Debug("chip dropped", "next", game.CurrentPlayer)
	}

	that.publisher.Publish(id, game)

	return game, nil
}

// ResetGame deals a new board for an existing game, abandoning whatever was in progress.
func (that *GameManager) ResetGame(ctx context.Context, id string) (*entity.Game, error) {
	unlock := that.lock(id)
	defer unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	that.rngMu.Lock()
	err = game.Reset(that.rng)
	that.rngMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	that.logger.Info("game reset", "gameID", id)

	that.publisher.Publish(id, game)

	return game, nil
}

func (that *GameManager) DeleteGame(ctx context.Context, id string) error {
	unlock := that.lock(id)
	defer unlock()

	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game deleted", "gameID", id)

	return nil
}

// createGame must be called with the game's lock held.
func (that *GameManager) createGame(ctx context.Context, id, gameType string) (*entity.Game, error) {
	that.rngMu.Lock()
	game, err := entity.NewGame(id, gameType, that.board.Rows, that.board.Cols, that.board.BlockedCount, that.rng)
	that.rngMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "gameID", id, "type", gameType)

	return game, nil
}

// lock takes the per-game mutex and returns its release. Entries are dropped once unused.
func (that *GameManager) lock(id string) func() {
	that.locksMu.Lock()
	gl, ok := that.locks[id]
	if !ok {
		gl = &gameLock{}
		that.locks[id] = gl
	}
	gl.refs++
	that.locksMu.Unlock()

	gl.mu.Lock()

	return func() {
		gl.mu.Unlock()

		that.locksMu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(that.locks, id)
		}
		that.locksMu.Unlock()
	}
}
