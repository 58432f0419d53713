package entity

import (
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
)

type Cell string

const (
	CellEmpty   Cell = ""
	CellBlocked Cell = "Blocked"

	ChipBlue  Cell = "Blue"
	ChipBlack Cell = "Black"
)

const (
	Player1 = "Player 1"
	Player2 = "Player 2"
	Draw    = "Draw"

	NoWinner = ""
)

const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

const (
	LocalType = "local"
	BotType   = "bot"
)

const winLength = 4

// directions checked from the last placed chip: right, down, down-right, down-left.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Position is a board coordinate, row 0 is the top row.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Game is the state of a single connect-four match on a board with blocked cells.
type Game struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Rows          int        `json:"rows"`
	Cols          int        `json:"cols"`
	BlockedCount  int        `json:"blocked_count"`
	Board         [][]Cell   `json:"board"`
	Blocked       []Position `json:"blocked"`
	CurrentPlayer string     `json:"current_player"`
	Winner        string     `json:"winner"`
	Status        string     `json:"status"`
	Moves         int        `json:"moves"`
}

// NewGame builds a fresh game with blockedCount cells blocked at random.
func NewGame(id, gameType string, rows, cols, blockedCount int, rng *rand.Rand) (*Game, error) {
	if gameType != LocalType && gameType != BotType {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownGameType, gameType)
	}

	game := &Game{
		ID:           id,
		Type:         gameType,
		Rows:         rows,
		Cols:         cols,
		BlockedCount: blockedCount,
	}

	if err := game.init(rng); err != nil {
		return nil, err
	}

	return game, nil
}

// Reset discards the current match, including one in progress, and deals a new blocked set.
func (that *Game) Reset(rng *rand.Rand) error {
	return that.init(rng)
}

// init deals a new board. The game is left untouched when the dimensions are invalid.
func (that *Game) init(rng *rand.Rand) error {
	blocked, err := SampleBlocked(rng, that.Rows, that.Cols, that.BlockedCount)
	if err != nil {
		return err
	}

	that.Board = make([][]Cell, that.Rows)
	for row := range that.Board {
		that.Board[row] = make([]Cell, that.Cols)
	}

	that.Blocked = blocked
	for _, pos := range that.Blocked {
		that.Board[pos.Row][pos.Col] = CellBlocked
	}

	that.CurrentPlayer = Player1
	that.Winner = NoWinner
	that.Status = StatusOngoing
	that.Moves = 0

	return nil
}

// DropChip drops the current player's chip into column and returns the row it landed on.
// On error the game is left untouched.
func (that *Game) DropChip(column int) (int, error) {
	if column < 0 || column >= that.Cols {
		return 0, fmt.Errorf("%w: %d", apperror.ErrInvalidColumn, column)
	}

	if that.IsFinished() {
		return 0, apperror.ErrGameOver
	}

	row := that.landingRow(column)
	if row < 0 {
		return 0, fmt.Errorf("%w: %d", apperror.ErrColumnFull, column)
	}

	chip := ChipFor(that.CurrentPlayer)
	that.Board[row][column] = chip
	that.Moves++

	switch {
	case that.checkWinner(row, column, chip):
		that.Winner = that.CurrentPlayer
		that.Status = StatusFinished
	case that.IsDraw():
		that.Winner = Draw
		that.Status = StatusFinished
	default:
		that.CurrentPlayer = otherPlayer(that.CurrentPlayer)
	}

	return row, nil
}

// landingRow scans the column bottom-up, returns -1 when nothing is open.
func (that *Game) landingRow(column int) int {
	for row := that.Rows - 1; row >= 0; row-- {
		if that.Board[row][column] == CellEmpty {
			return row
		}
	}

	return -1
}

// checkWinner looks only at lines through (row, col); a win can only pass through the last chip.
func (that *Game) checkWinner(row, col int, chip Cell) bool {
	for _, dir := range directions {
		count := 1
		for _, step := range [2]int{1, -1} {
			r, c := row+step*dir[0], col+step*dir[1]
			for that.inBounds(r, c) && that.Board[r][c] == chip {
				count++
				r += step * dir[0]
				c += step * dir[1]
			}
		}

		if count >= winLength {
			return true
		}
	}

	return false
}

func (that *Game) inBounds(row, col int) bool {
	return row >= 0 && row < that.Rows && col >= 0 && col < that.Cols
}

// IsDraw reports whether every cell is either blocked or holds a chip.
func (that *Game) IsDraw() bool {
	for _, row := range that.Board {
		for _, cell := range row {
			if cell == CellEmpty {
				return false
			}
		}
	}

	return true
}

// PlayableColumns lists the columns that still accept a chip.
func (that *Game) PlayableColumns() []int {
	columns := make([]int, 0, that.Cols)
	for col := 0; col < that.Cols; col++ {
		if that.landingRow(col) >= 0 {
			columns = append(columns, col)
		}
	}

	return columns
}

func (that *Game) IsFinished() bool {
	return that.Winner != NoWinner
}

func (that *Game) IsWithBot() bool {
	return that.Type == BotType
}

// ChipFor maps a player to the colour of their chips.
func ChipFor(player string) Cell {
	if player == Player1 {
		return ChipBlue
	}
	return ChipBlack
}

func otherPlayer(player string) string {
	if player == Player1 {
		return Player2
	}
	return Player1
}

func validateDimensions(rows, cols, blockedCount int) error {
	if rows < 1 || cols < 1 {
		return fmt.Errorf("%w: board %dx%d", apperror.ErrInvalidBoardConfig, rows, cols)
	}

	if blockedCount < 0 || blockedCount > rows*cols {
		return fmt.Errorf("%w: %d blocked cells on a %dx%d board", apperror.ErrInvalidBoardConfig, blockedCount, rows, cols)
	}

	return nil
}
