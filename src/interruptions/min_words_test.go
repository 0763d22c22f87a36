package interruptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinWordsStrategyBelowThreshold(t *testing.T) {
	s := NewMinWordsInterruptionStrategy(3)

	require.NoError(t, s.AppendText("stop "))
	require.NoError(t, s.AppendText("it"))

	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	assert.False(t, interrupt)
}

func TestMinWordsStrategyAtThreshold(t *testing.T) {
	s := NewMinWordsInterruptionStrategy(3)

	require.NoError(t, s.AppendText("please stop "))
	require.NoError(t, s.AppendText("talking"))

	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	assert.True(t, interrupt)
}

func TestMinWordsStrategyReset(t *testing.T) {
	s := NewMinWordsInterruptionStrategy(2)

	require.NoError(t, s.AppendText("one two three"))
	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	require.True(t, interrupt)

	require.NoError(t, s.Reset())

	interrupt, err = s.ShouldInterrupt()
	require.NoError(t, err)
	assert.False(t, interrupt)
}
