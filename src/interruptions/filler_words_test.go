package interruptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soft-signal-labs/floorgo-ai/src/filter"
)

func newTestStrategy() *FillerWordsInterruptionStrategy {
	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"uh", "umm", "hmm"}, 0.5, false,
	))
	return NewFillerWordsInterruptionStrategy(classifier)
}

func TestFillerWordsStrategyIgnoresFillerOnly(t *testing.T) {
	s := newTestStrategy()

	require.NoError(t, s.AppendText("umm"))
	require.NoError(t, s.AppendText("uh"))

	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	assert.False(t, interrupt)
}

func TestFillerWordsStrategyInterruptsOnMeaningfulText(t *testing.T) {
	s := newTestStrategy()

	require.NoError(t, s.AppendText("umm"))
	require.NoError(t, s.AppendText("wait a second"))

	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	assert.True(t, interrupt)
}

func TestFillerWordsStrategyEmptyUtterance(t *testing.T) {
	s := newTestStrategy()

	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	assert.False(t, interrupt)
}

func TestFillerWordsStrategyReset(t *testing.T) {
	s := newTestStrategy()

	require.NoError(t, s.AppendText("stop right there"))
	interrupt, err := s.ShouldInterrupt()
	require.NoError(t, err)
	require.True(t, interrupt)

	require.NoError(t, s.Reset())

	require.NoError(t, s.AppendText("hmm"))
	interrupt, err = s.ShouldInterrupt()
	require.NoError(t, err)
	assert.False(t, interrupt, "meaningful text from the previous utterance must not persist")
}

func TestFillerWordsStrategyIgnoresAudio(t *testing.T) {
	s := newTestStrategy()

	// Audio is not this strategy's concern; it must not error
	require.NoError(t, s.AppendAudio([]byte{0x00, 0x01}, 16000))
}
