package service

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

type BotService interface {
	MakeTurn(game *entity.Game, rng *rand.Rand) error
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

// MakeTurn drops a chip for the current player into a random column that still has room.
func (that *botService) MakeTurn(game *entity.Game, rng *rand.Rand) error {
	columns := game.PlayableColumns()
	if len(columns) == 0 {
		return ErrNoAvailableMoves
	}

	column := columns[rng.Intn(len(columns))]

	if _, err := game.DropChip(column); err != nil {
		return fmt.Errorf("bot failed to drop chip in column %d: %w", column, err)
	}

	return nil
}
