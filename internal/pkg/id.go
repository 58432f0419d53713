package pkg

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateGameID - generates a unique identifier for a game.
func GenerateGameID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate game id: %w", err)
	}

	return id.String(), nil
}
