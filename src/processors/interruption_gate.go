package processors

import (
	"context"
	"sync"

	"github.com/soft-signal-labs/floorgo-ai/src/filter"
	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
)

// InterruptionGateProcessor decides whether user speech arriving while the
// agent is speaking should interrupt it. It tracks the agent's speaking
// state from TTSStarted/TTSStopped frames and runs every final
// transcription through the filler/confidence classifier. Filler is
// consumed so the agent keeps talking; a genuine interruption is passed
// downstream and an InterruptionFrame is pushed upstream so the output
// service stops playback. The gate itself never touches audio.
type InterruptionGateProcessor struct {
	*BaseProcessor
	classifier *filter.Classifier
	log        *logger.Logger

	agentSpeaking bool
	stateMu       sync.RWMutex
}

// NewInterruptionGateProcessor creates a gate around the given classifier
func NewInterruptionGateProcessor(classifier *filter.Classifier) *InterruptionGateProcessor {
	g := &InterruptionGateProcessor{
		classifier: classifier,
		log:        logger.WithPrefix("InterruptionGate"),
	}
	g.BaseProcessor = NewBaseProcessor("InterruptionGate", g)
	return g
}

// Classifier exposes the live classifier so a control plane can adjust
// filler words or the confidence threshold mid-session
func (g *InterruptionGateProcessor) Classifier() *filter.Classifier {
	return g.classifier
}

// AgentSpeaking reports whether the gate currently believes the agent is
// producing speech
func (g *InterruptionGateProcessor) AgentSpeaking() bool {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.agentSpeaking
}

func (g *InterruptionGateProcessor) setAgentSpeaking(speaking bool) {
	g.stateMu.Lock()
	prev := g.agentSpeaking
	g.agentSpeaking = speaking
	g.stateMu.Unlock()

	if !prev && speaking {
		g.log.Debug("Agent started speaking")
	} else if prev && !speaking {
		g.log.Debug("Agent stopped speaking")
	}
}

// HandleFrame processes frames for interruption gating
func (g *InterruptionGateProcessor) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch f := frame.(type) {
	case *frames.StartFrame:
		g.HandleStartFrame(f)
		g.log.Info("Configured: interruptions_allowed=%v strategies=%d",
			g.InterruptionsAllowed(), len(g.InterruptionStrategies()))
		return g.PushFrame(frame, direction)

	case *frames.TTSStartedFrame:
		g.setAgentSpeaking(true)
		return g.PushFrame(frame, direction)

	case *frames.TTSStoppedFrame:
		g.setAgentSpeaking(false)
		return g.PushFrame(frame, direction)

	case *frames.InterruptionFrame:
		// Playback is being cancelled; the agent is no longer speaking
		g.setAgentSpeaking(false)
		return g.PushFrame(frame, direction)

	case *frames.TranscriptionFrame:
		return g.handleTranscription(f, direction)

	case *frames.UserStoppedSpeakingFrame:
		if err := g.checkStrategies(); err != nil {
			g.log.Error("Error checking interruption strategies: %v", err)
		}
		return g.PushFrame(frame, direction)
	}

	return g.PushFrame(frame, direction)
}

// handleTranscription applies the classifier to final transcriptions that
// arrive while the agent is speaking
func (g *InterruptionGateProcessor) handleTranscription(f *frames.TranscriptionFrame, direction frames.FrameDirection) error {
	// Both interim and final text feed the configured strategies, which
	// judge the aggregated utterance once the user stops speaking
	for _, strategy := range g.InterruptionStrategies() {
		if err := strategy.AppendText(f.Text); err != nil {
			g.log.Error("Error appending text to strategy: %v", err)
		}
	}

	if !f.IsFinal || !g.AgentSpeaking() {
		return g.PushFrame(f, direction)
	}

	if !g.InterruptionsAllowed() {
		g.log.Debug("Interruptions disabled; passing transcript through")
		return g.PushFrame(f, direction)
	}

	if g.classifier.ShouldIgnore(f.Text, f.Confidence) {
		g.log.Info("Ignored filler input: '%s' (conf: %.2f)", f.Text, f.Confidence)
		// Consumed: the agent keeps talking and the filler never reaches
		// the conversation context
		return nil
	}

	g.log.Info("Valid interruption detected: '%s'", f.Text)
	if err := g.PushInterruptionTaskFrame(); err != nil {
		g.log.Error("Error pushing interruption task frame: %v", err)
	}
	return g.PushFrame(f, direction)
}

// checkStrategies consults the configured strategies once the user stops
// speaking, mirroring the aggregated-utterance interruption path
func (g *InterruptionGateProcessor) checkStrategies() error {
	strategies := g.InterruptionStrategies()
	if len(strategies) == 0 {
		return nil
	}

	// UserStoppedSpeaking is an utterance boundary: the accumulated text
	// must be cleared even when no interruption check runs, or a normal
	// turn spoken while the agent was silent leaks into the next one
	defer func() {
		for _, strategy := range strategies {
			if err := strategy.Reset(); err != nil {
				g.log.Error("Error resetting strategy: %v", err)
			}
		}
	}()

	if !g.AgentSpeaking() || !g.InterruptionsAllowed() {
		return nil
	}

	shouldInterrupt := false
	for _, strategy := range strategies {
		interrupt, err := strategy.ShouldInterrupt()
		if err != nil {
			g.log.Error("Strategy error: %v", err)
			continue
		}
		if interrupt {
			shouldInterrupt = true
			break
		}
	}

	if shouldInterrupt {
		g.log.Info("Strategy conditions met, triggering interruption")
		if err := g.PushInterruptionTaskFrame(); err != nil {
			return err
		}
	}
	return nil
}
