package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/soft-signal-labs/floorgo-ai/src/logger"
)

// NoConfidence marks a transcript that arrived without an ASR confidence
// score. The confidence gate only applies to scores >= 0, so a transcript
// carrying this sentinel is judged on word content alone.
const NoConfidence = -1.0

// ErrThresholdOutOfRange is returned by UpdateConfidenceThreshold for
// values outside [0.0, 1.0].
var ErrThresholdOutOfRange = errors.New("confidence threshold must be between 0.0 and 1.0")

// Reason explains a classifier verdict.
type Reason int

const (
	// ReasonLowConfidence means the ASR score fell below the threshold.
	ReasonLowConfidence Reason = iota
	// ReasonNoContent means the text was empty after normalization.
	ReasonNoContent
	// ReasonFillerOnly means every token was a known filler word.
	ReasonFillerOnly
	// ReasonMeaningful means at least one non-filler token was present.
	ReasonMeaningful
)

func (r Reason) String() string {
	switch r {
	case ReasonLowConfidence:
		return "low_confidence"
	case ReasonNoContent:
		return "no_content"
	case ReasonFillerOnly:
		return "filler_only"
	case ReasonMeaningful:
		return "meaningful"
	default:
		return "unknown"
	}
}

// Observer receives diagnostic events from a classifier. It replaces a hard
// logging dependency so the classifier stays testable on its own.
type Observer interface {
	// Decision is invoked after every ShouldIgnore call.
	Decision(text string, confidence float64, ignored bool, reason Reason)

	// UpdateRejected is invoked when a word-set mutation is dropped
	// because dynamic updates are disabled.
	UpdateRejected(op, word string)
}

// Stats is a read-only snapshot of classifier state.
type Stats struct {
	IgnoredWordsCount     int
	ConfidenceThreshold   float64
	DynamicUpdatesEnabled bool
	IgnoredWords          []string // sorted
}

// Classifier decides whether transcribed speech arriving while the agent is
// speaking should interrupt it or be ignored as harmless filler. It holds a
// live copy of the configured word set and threshold; both are guarded by a
// mutex so a control plane may adjust them while the transcript path
// classifies in parallel. One classifier lives per agent session.
type Classifier struct {
	mu        sync.Mutex
	ignored   map[string]struct{}
	threshold float64
	canUpdate bool
	obs       Observer
	log       *logger.Logger
}

// NewClassifier creates a classifier seeded from the given config.
func NewClassifier(cfg *FilterConfig) *Classifier {
	c := &Classifier{
		ignored:   cfg.IgnoredWords(),
		threshold: cfg.ConfidenceLimit(),
		canUpdate: cfg.AllowDynamicUpdates(),
		log:       logger.WithPrefix("Filter"),
	}

	c.log.Info("Classifier ready: %d ignored words, confidence limit %.2f, dynamic updates %v",
		len(c.ignored), c.threshold, c.canUpdate)
	return c
}

// SetObserver installs a diagnostic observer. Pass nil to remove it.
func (c *Classifier) SetObserver(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obs = obs
}

// ShouldIgnore reports whether the utterance should be ignored (the agent
// keeps talking) rather than treated as a genuine interruption. Pass
// NoConfidence when the ASR supplied no score. The call is total: every
// input yields a verdict, never an error.
//
// The confidence gate dominates word content: a low-confidence guess is
// discarded no matter what words it contains. Once confidence passes the
// gate, an utterance made up entirely of filler words is still ignored.
func (c *Classifier) ShouldIgnore(text string, confidence float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if confidence >= 0 && confidence < c.threshold {
		c.log.Debug("Skipping low-confidence text: '%s' (%.2f < %.2f)", text, confidence, c.threshold)
		c.observe(text, confidence, true, ReasonLowConfidence)
		return true
	}

	normalized := Normalize(text)
	if normalized == "" {
		c.log.Debug("Ignoring empty or non-alphanumeric text: '%s'", text)
		c.observe(text, confidence, true, ReasonNoContent)
		return true
	}

	words := strings.Fields(normalized)
	nonFillers := words[:0:0]
	for _, w := range words {
		if _, ok := c.ignored[w]; !ok {
			nonFillers = append(nonFillers, w)
		}
	}

	if len(nonFillers) == 0 {
		c.log.Debug("Ignoring filler-only speech: %v", words)
		c.observe(text, confidence, true, ReasonFillerOnly)
		return true
	}

	c.log.Debug("Recognized meaningful words: %v", nonFillers)
	c.observe(text, confidence, false, ReasonMeaningful)
	return false
}

// AddIgnoredWord inserts a filler word into the live set. It is a logged
// no-op when dynamic updates are disabled, and idempotent otherwise.
func (c *Classifier) AddIgnoredWord(word string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canUpdate {
		c.log.Warn("Dynamic updates are disabled; not adding '%s'", word)
		if c.obs != nil {
			c.obs.UpdateRejected("add", word)
		}
		return
	}

	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return
	}
	if _, ok := c.ignored[w]; !ok {
		c.ignored[w] = struct{}{}
		c.log.Info("Added '%s' to the ignored word set", w)
	}
}

// RemoveIgnoredWord removes a filler word from the live set. Removing an
// absent word is a no-op, not an error.
func (c *Classifier) RemoveIgnoredWord(word string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canUpdate {
		c.log.Warn("Dynamic updates are disabled; not removing '%s'", word)
		if c.obs != nil {
			c.obs.UpdateRejected("remove", word)
		}
		return
	}

	w := strings.ToLower(strings.TrimSpace(word))
	if _, ok := c.ignored[w]; ok {
		delete(c.ignored, w)
		c.log.Info("Removed '%s' from the ignored word set", w)
	}
}

// IgnoredWords returns a snapshot of the current word set. Mutating the
// returned map does not affect the classifier.
func (c *Classifier) IgnoredWords() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]struct{}, len(c.ignored))
	for w := range c.ignored {
		out[w] = struct{}{}
	}
	return out
}

// UpdateConfidenceThreshold replaces the live threshold. Unlike word-set
// mutation this is not gated by the dynamic-update flag; the only failure
// mode is a value outside [0.0, 1.0].
func (c *Classifier) UpdateConfidenceThreshold(newValue float64) error {
	if newValue < 0.0 || newValue > 1.0 {
		return fmt.Errorf("%w: got %.2f", ErrThresholdOutOfRange, newValue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.threshold
	c.threshold = newValue
	c.log.Info("Confidence threshold changed from %.2f to %.2f", old, newValue)
	return nil
}

// Stats returns a diagnostic snapshot of the classifier's current state.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	words := make([]string, 0, len(c.ignored))
	for w := range c.ignored {
		words = append(words, w)
	}
	sort.Strings(words)

	return Stats{
		IgnoredWordsCount:     len(c.ignored),
		ConfidenceThreshold:   c.threshold,
		DynamicUpdatesEnabled: c.canUpdate,
		IgnoredWords:          words,
	}
}

// observe must be called with c.mu held.
func (c *Classifier) observe(text string, confidence float64, ignored bool, reason Reason) {
	if c.obs != nil {
		c.obs.Decision(text, confidence, ignored, reason)
	}
}

// Normalize lowercases text, strips every rune that is not an ASCII letter,
// digit or whitespace, then collapses whitespace runs and trims the ends.
// Punctuation-only input normalizes to the empty string.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, lowered)

	return strings.Join(strings.Fields(cleaned), " ")
}
