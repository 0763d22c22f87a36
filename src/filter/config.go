package filter

import "strings"

// DefaultConfidenceLimit is the threshold below which transcripts are
// discarded when no explicit limit is configured.
const DefaultConfidenceLimit = 0.5

// FilterConfig describes how the interruption filter behaves: which words
// are treated as meaningless filler and how strict the ASR confidence
// gate is. A config is built once at startup and is immutable; the
// classifier works on its own copy of the word set.
type FilterConfig struct {
	ignoredWords        map[string]struct{}
	confidenceLimit     float64
	allowDynamicUpdates bool
}

// NewFilterConfig builds a config from a raw word list. Words are trimmed,
// lowercased and deduplicated; empty entries are dropped. The confidence
// limit is stored as-is; range validation is the caller's concern (see
// config.AgentConfig.Validate).
func NewFilterConfig(words []string, confidenceLimit float64, allowDynamicUpdates bool) *FilterConfig {
	cleaned := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			cleaned[w] = struct{}{}
		}
	}

	return &FilterConfig{
		ignoredWords:        cleaned,
		confidenceLimit:     confidenceLimit,
		allowDynamicUpdates: allowDynamicUpdates,
	}
}

// IgnoredWords returns a copy of the normalized word set.
func (c *FilterConfig) IgnoredWords() map[string]struct{} {
	out := make(map[string]struct{}, len(c.ignoredWords))
	for w := range c.ignoredWords {
		out[w] = struct{}{}
	}
	return out
}

// ConfidenceLimit returns the configured confidence threshold.
func (c *FilterConfig) ConfidenceLimit() float64 {
	return c.confidenceLimit
}

// AllowDynamicUpdates reports whether runtime word-set mutation is permitted.
func (c *FilterConfig) AllowDynamicUpdates() bool {
	return c.allowDynamicUpdates
}
