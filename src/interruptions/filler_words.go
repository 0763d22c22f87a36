package interruptions

import (
	"strings"

	"github.com/soft-signal-labs/floorgo-ai/src/filter"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
)

// FillerWordsInterruptionStrategy is an interruption strategy backed by the
// filler/confidence classifier. It accumulates transcribed text while the
// user speaks; when asked, it interrupts only if the accumulated utterance
// is not ignorable filler. Confidence gating happens earlier on the
// transcript path (see processors.InterruptionGateProcessor), so the
// aggregated text is judged on word content alone here.
type FillerWordsInterruptionStrategy struct {
	BaseInterruptionStrategy
	classifier *filter.Classifier
	parts      []string
}

// NewFillerWordsInterruptionStrategy creates a strategy around an existing
// classifier. The classifier may be shared with an interruption gate; its
// own mutex makes that safe.
func NewFillerWordsInterruptionStrategy(classifier *filter.Classifier) *FillerWordsInterruptionStrategy {
	return &FillerWordsInterruptionStrategy{
		classifier: classifier,
	}
}

// AppendText accumulates transcribed text for the current utterance
func (f *FillerWordsInterruptionStrategy) AppendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.parts = append(f.parts, text)
	return nil
}

// ShouldInterrupt reports whether the accumulated utterance carries any
// meaningful (non-filler) content
func (f *FillerWordsInterruptionStrategy) ShouldInterrupt() (bool, error) {
	f.mu.Lock()
	aggregated := strings.Join(f.parts, " ")
	f.mu.Unlock()

	ignore := f.classifier.ShouldIgnore(aggregated, filter.NoConfidence)

	logger.Debug("[FillerWordsStrategy] should_interrupt=%v text=%q", !ignore, aggregated)
	return !ignore, nil
}

// Reset clears the accumulated text for the next utterance
func (f *FillerWordsInterruptionStrategy) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.parts = nil
	return nil
}
