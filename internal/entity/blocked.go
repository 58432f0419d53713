package entity

import (
	"math/rand"
	"slices"
)

// SampleBlocked picks count distinct cells uniformly at random from a rows x cols grid.
// The result is ordered row-major so the same seed always yields the same slice.
func SampleBlocked(rng *rand.Rand, rows, cols, count int) ([]Position, error) {
	if err := validateDimensions(rows, cols, count); err != nil {
		return nil, err
	}

	perm := rng.Perm(rows * cols)

	blocked := make([]Position, 0, count)
	for _, pos := range perm[:count] {
		blocked = append(blocked, Position{Row: pos / cols, Col: pos % cols})
	}

	slices.SortFunc(blocked, func(a, b Position) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})

	return blocked, nil
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint: gosec // board layout is not security sensitive
}
