package oplock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	var g Guard

	require.NoError(t, g.Acquire())
	assert.ErrorIs(t, g.Acquire(), ErrBusy)

	g.Release()
	require.NoError(t, g.Acquire())
	g.Release()
}
