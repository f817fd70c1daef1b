package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIDs_StartsAtOne(t *testing.T) {
	ids := newTaskIDs()
	assert.Equal(t, uint16(1), ids.Peek())
	assert.Equal(t, uint16(1), ids.Next())
	assert.Equal(t, uint16(2), ids.Next())
}

func TestTaskIDs_WrapSkipsZero(t *testing.T) {
	ids := newTaskIDs()

	for i := 1; i <= 65535; i++ {
		id := ids.Next()
		require.NotZero(t, id)
		require.Equal(t, uint16(i), id)
	}

	assert.Equal(t, uint16(1), ids.Peek())
	assert.Equal(t, uint16(1), ids.Next())
}

func TestTaskIDs_ZeroValue(t *testing.T) {
	var ids taskIDs
	assert.Equal(t, uint16(1), ids.Next())
}
