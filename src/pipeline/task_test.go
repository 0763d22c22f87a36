package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/processors"
)

// captureProcessor records every frame it handles. A TextFrame makes it
// request an interruption, which lets tests drive the upstream path.
type captureProcessor struct {
	*processors.BaseProcessor
	mu   sync.Mutex
	seen []frames.Frame
}

func newCaptureProcessor() *captureProcessor {
	c := &captureProcessor{}
	c.BaseProcessor = processors.NewBaseProcessor("capture", c)
	return c
}

func (c *captureProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	c.mu.Lock()
	c.seen = append(c.seen, frame)
	c.mu.Unlock()

	if _, ok := frame.(*frames.TextFrame); ok {
		return c.PushInterruptionTaskFrame()
	}
	return c.PushFrame(frame, direction)
}

func (c *captureProcessor) sawFrame(match func(frames.Frame) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.seen {
		if match(f) {
			return true
		}
	}
	return false
}

func TestPipelineTaskHasUniqueID(t *testing.T) {
	a := NewPipelineTask(NewPipeline(nil))
	b := NewPipelineTask(NewPipeline(nil))

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestQueueFrameBeforeRunFails(t *testing.T) {
	task := NewPipelineTask(NewPipeline(nil))

	err := task.QueueFrame(frames.NewTextFrame("too early"))
	assert.ErrorContains(t, err, "not started")
}

func TestInterruptionTaskFrameBroadcastsInterruption(t *testing.T) {
	capture := newCaptureProcessor()
	p := NewPipeline([]processors.FrameProcessor{capture})
	task := NewPipelineTaskWithConfig(p, &PipelineTaskConfig{
		AllowInterruptions: true,
	})

	started := make(chan struct{})
	task.OnStarted(func() { close(started) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = task.Run(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not start")
	}

	// The capture processor answers a TextFrame with an upstream
	// interruption request; the task must broadcast an InterruptionFrame
	// back downstream
	require.NoError(t, task.QueueFrame(frames.NewTextFrame("trigger")))

	require.Eventually(t, func() bool {
		return capture.sawFrame(func(f frames.Frame) bool {
			_, ok := f.(*frames.InterruptionFrame)
			return ok
		})
	}, 2*time.Second, 10*time.Millisecond, "InterruptionFrame never reached the pipeline")

	task.Cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not shut down")
	}
}

func TestStartFrameCarriesInterruptionConfig(t *testing.T) {
	capture := newCaptureProcessor()
	p := NewPipeline([]processors.FrameProcessor{capture})
	task := NewPipelineTaskWithConfig(p, &PipelineTaskConfig{
		AllowInterruptions: true,
	})

	started := make(chan struct{})
	task.OnStarted(func() { close(started) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = task.Run(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not start")
	}

	assert.True(t, capture.sawFrame(func(f frames.Frame) bool {
		sf, ok := f.(*frames.StartFrame)
		return ok && sf.AllowInterruptions
	}))

	task.Cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not shut down")
	}
}
