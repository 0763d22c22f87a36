package processors

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soft-signal-labs/floorgo-ai/src/filter"
	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/interruptions"
)

// frameRecorder captures every frame queued at it. It implements
// FrameProcessor directly so tests can observe what the gate pushes without
// running processor goroutines.
type frameRecorder struct {
	mu     sync.Mutex
	frames []frames.Frame
}

func (r *frameRecorder) ProcessFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	return nil
}

func (r *frameRecorder) QueueFrame(frame frames.Frame, direction frames.FrameDirection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return nil
}

func (r *frameRecorder) PushFrame(frame frames.Frame, direction frames.FrameDirection) error {
	return nil
}

func (r *frameRecorder) Link(next FrameProcessor)    {}
func (r *frameRecorder) SetPrev(prev FrameProcessor) {}
func (r *frameRecorder) Start(ctx context.Context) error {
	return nil
}
func (r *frameRecorder) Stop() error { return nil }
func (r *frameRecorder) Name() string {
	return "frameRecorder"
}

func (r *frameRecorder) captured() []frames.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]frames.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *frameRecorder) hasFrame(match func(frames.Frame) bool) bool {
	for _, f := range r.captured() {
		if match(f) {
			return true
		}
	}
	return false
}

func isInterruptionTaskFrame(f frames.Frame) bool {
	_, ok := f.(*frames.InterruptionTaskFrame)
	return ok
}

func isTranscriptionFrame(f frames.Frame) bool {
	_, ok := f.(*frames.TranscriptionFrame)
	return ok
}

func newTestGate(t *testing.T, strategies []interruptions.InterruptionStrategy) (*InterruptionGateProcessor, *frameRecorder, *frameRecorder) {
	t.Helper()

	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"uh", "umm", "hmm"}, 0.5, false,
	))
	gate := NewInterruptionGateProcessor(classifier)

	upstream := &frameRecorder{}
	downstream := &frameRecorder{}
	gate.SetPrev(upstream)
	gate.Link(downstream)

	start := frames.NewStartFrameWithConfig(true, strategies)
	require.NoError(t, gate.HandleFrame(context.Background(), start, frames.Downstream))

	return gate, upstream, downstream
}

func TestGateTracksAgentSpeakingState(t *testing.T) {
	gate, _, _ := newTestGate(t, nil)
	ctx := context.Background()

	assert.False(t, gate.AgentSpeaking())

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))
	assert.True(t, gate.AgentSpeaking())

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStoppedFrame(), frames.Upstream))
	assert.False(t, gate.AgentSpeaking())
}

func TestGateInterruptionFrameClearsSpeakingState(t *testing.T) {
	gate, _, _ := newTestGate(t, nil)
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))
	require.True(t, gate.AgentSpeaking())

	require.NoError(t, gate.HandleFrame(ctx, frames.NewInterruptionFrame(), frames.Downstream))
	assert.False(t, gate.AgentSpeaking())
}

func TestGateConsumesFillerWhileAgentSpeaks(t *testing.T) {
	gate, upstream, downstream := newTestGate(t, nil)
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	f := frames.NewTranscriptionFrame("umm", 0.9, true)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.False(t, downstream.hasFrame(isTranscriptionFrame), "filler must not reach the conversation")
	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame), "filler must not trigger an interruption")
}

func TestGateConsumesLowConfidenceWhileAgentSpeaks(t *testing.T) {
	gate, upstream, downstream := newTestGate(t, nil)
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	f := frames.NewTranscriptionFrame("hello there", 0.3, true)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.False(t, downstream.hasFrame(isTranscriptionFrame))
	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame))
}

func TestGateTriggersInterruptionOnMeaningfulSpeech(t *testing.T) {
	gate, upstream, downstream := newTestGate(t, nil)
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	f := frames.NewTranscriptionFrame("wait stop", 0.9, true)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.True(t, upstream.hasFrame(isInterruptionTaskFrame), "meaningful speech must request an interruption")
	assert.True(t, downstream.hasFrame(isTranscriptionFrame), "the transcript must continue to the conversation")
}

func TestGatePassesThroughWhenAgentSilent(t *testing.T) {
	gate, upstream, downstream := newTestGate(t, nil)
	ctx := context.Background()

	// Agent is not speaking: even pure filler flows through untouched
	f := frames.NewTranscriptionFrame("umm", 0.9, true)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.True(t, downstream.hasFrame(isTranscriptionFrame))
	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame))
}

func TestGatePassesThroughInterimResults(t *testing.T) {
	gate, upstream, downstream := newTestGate(t, nil)
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	f := frames.NewTranscriptionFrame("umm", filter.NoConfidence, false)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.True(t, downstream.hasFrame(isTranscriptionFrame), "interim results are not gated")
	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame))
}

func TestGateRespectsInterruptionsDisabled(t *testing.T) {
	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"umm"}, 0.5, false,
	))
	gate := NewInterruptionGateProcessor(classifier)

	upstream := &frameRecorder{}
	downstream := &frameRecorder{}
	gate.SetPrev(upstream)
	gate.Link(downstream)

	ctx := context.Background()
	start := frames.NewStartFrameWithConfig(false, nil)
	require.NoError(t, gate.HandleFrame(ctx, start, frames.Downstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	f := frames.NewTranscriptionFrame("wait stop", 0.9, true)
	require.NoError(t, gate.HandleFrame(ctx, f, frames.Downstream))

	assert.True(t, downstream.hasFrame(isTranscriptionFrame))
	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame))
}

func TestGateStrategyPathOnUserStoppedSpeaking(t *testing.T) {
	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"uh", "umm", "hmm"}, 0.5, false,
	))
	strategy := interruptions.NewFillerWordsInterruptionStrategy(classifier)
	gate, upstream, _ := newTestGate(t, []interruptions.InterruptionStrategy{strategy})
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))

	// Interim fragments accumulate in the strategy without gating
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTranscriptionFrame("hold", filter.NoConfidence, false), frames.Downstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTranscriptionFrame("on", filter.NoConfidence, false), frames.Downstream))

	require.NoError(t, gate.HandleFrame(ctx, frames.NewUserStoppedSpeakingFrame(), frames.Downstream))

	assert.True(t, upstream.hasFrame(isInterruptionTaskFrame))
}

func TestGateStrategyTextDoesNotLeakAcrossTurns(t *testing.T) {
	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"uh", "umm", "hmm"}, 0.5, false,
	))
	strategy := interruptions.NewFillerWordsInterruptionStrategy(classifier)
	gate, upstream, _ := newTestGate(t, []interruptions.InterruptionStrategy{strategy})
	ctx := context.Background()

	// A normal user turn while the agent is silent: no interruption check
	// runs, but the utterance boundary must still clear the strategies
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTranscriptionFrame("book a table", filter.NoConfidence, false), frames.Downstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewUserStoppedSpeakingFrame(), frames.Downstream))

	// Next turn: the agent speaks and the user only back-channels
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTranscriptionFrame("umm", filter.NoConfidence, false), frames.Downstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewUserStoppedSpeakingFrame(), frames.Downstream))

	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame),
		"text from the previous turn must not turn a filler back-channel into an interruption")
}

func TestGateStrategyPathIgnoresFillerUtterance(t *testing.T) {
	classifier := filter.NewClassifier(filter.NewFilterConfig(
		[]string{"uh", "umm", "hmm"}, 0.5, false,
	))
	strategy := interruptions.NewFillerWordsInterruptionStrategy(classifier)
	gate, upstream, _ := newTestGate(t, []interruptions.InterruptionStrategy{strategy})
	ctx := context.Background()

	require.NoError(t, gate.HandleFrame(ctx, frames.NewTTSStartedFrame(), frames.Upstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewTranscriptionFrame("umm", filter.NoConfidence, false), frames.Downstream))
	require.NoError(t, gate.HandleFrame(ctx, frames.NewUserStoppedSpeakingFrame(), frames.Downstream))

	assert.False(t, upstream.hasFrame(isInterruptionTaskFrame))
}
