package apperror

import "errors"

var (
	ErrInvalidColumn      = errors.New("invalid column")
	ErrColumnFull         = errors.New("column is full")
	ErrGameOver           = errors.New("game over")
	ErrGameNotFound       = errors.New("game not found")
	ErrInvalidBoardConfig = errors.New("invalid board config")
	ErrUnknownGameType    = errors.New("unknown game type")
)
