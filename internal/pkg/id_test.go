package pkg

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGameID(t *testing.T) {
	// When: two ids are generated
	first, err := GenerateGameID()
	require.NoError(t, err)
	second, err := GenerateGameID()
	require.NoError(t, err)

	// Then: both are valid uuids and differ
	_, err = uuid.Parse(first)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
