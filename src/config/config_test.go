package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredKeys(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")
	t.Setenv("OPENAI_API_KEY", "oa-test")
	t.Setenv("CARTESIA_API_KEY", "ca-test")
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("IGNORED_WORDS", "")
	t.Setenv("CONFIDENCE_THRESHOLD", "")
	t.Setenv("ENABLE_DYNAMIC_UPDATES", "")
	t.Setenv("MIN_INTERRUPTION_DURATION", "")
	t.Setenv("FALSE_INTERRUPTION_TIMEOUT", "")
	t.Setenv("RESUME_FALSE_INTERRUPTION", "")

	cfg := FromEnv()

	assert.Equal(t, []string{"uh", "umm", "hmm", "haan", "um", "er", "ah"}, cfg.IgnoredWords)
	assert.Equal(t, 0.5, cfg.ConfidenceLimit)
	assert.False(t, cfg.AllowDynamicUpdates)
	assert.Equal(t, 300*time.Millisecond, cfg.MinInterruptionDuration)
	assert.Equal(t, 1500*time.Millisecond, cfg.FalseInterruptionTimeout)
	assert.True(t, cfg.ResumeOnFalse)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("IGNORED_WORDS", "hmm, yeah , ok,")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("ENABLE_DYNAMIC_UPDATES", "true")
	t.Setenv("MIN_INTERRUPTION_DURATION", "0.5")
	t.Setenv("FALSE_INTERRUPTION_TIMEOUT", "2")
	t.Setenv("RESUME_FALSE_INTERRUPTION", "false")

	cfg := FromEnv()

	assert.Equal(t, []string{"hmm", "yeah", "ok"}, cfg.IgnoredWords)
	assert.Equal(t, 0.8, cfg.ConfidenceLimit)
	assert.True(t, cfg.AllowDynamicUpdates)
	assert.Equal(t, 500*time.Millisecond, cfg.MinInterruptionDuration)
	assert.Equal(t, 2*time.Second, cfg.FalseInterruptionTimeout)
	assert.False(t, cfg.ResumeOnFalse)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "not-a-number")
	t.Setenv("MIN_INTERRUPTION_DURATION", "soon")

	cfg := FromEnv()

	assert.Equal(t, 0.5, cfg.ConfidenceLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.MinInterruptionDuration)
}

func TestFromEnvBoolForms(t *testing.T) {
	setRequiredKeys(t)

	t.Setenv("ENABLE_DYNAMIC_UPDATES", "1")
	assert.True(t, FromEnv().AllowDynamicUpdates)

	t.Setenv("ENABLE_DYNAMIC_UPDATES", "TRUE")
	assert.True(t, FromEnv().AllowDynamicUpdates)

	t.Setenv("ENABLE_DYNAMIC_UPDATES", "no")
	assert.False(t, FromEnv().AllowDynamicUpdates)
}

func TestValidate(t *testing.T) {
	setRequiredKeys(t)
	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingKeys(t *testing.T) {
	setRequiredKeys(t)

	cfg := FromEnv()
	cfg.DeepgramAPIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "DEEPGRAM_API_KEY")

	cfg = FromEnv()
	cfg.OpenAIAPIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "OPENAI_API_KEY")

	cfg = FromEnv()
	cfg.CartesiaAPIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "CARTESIA_API_KEY")
}

func TestValidateThresholdRange(t *testing.T) {
	setRequiredKeys(t)

	cfg := FromEnv()
	cfg.ConfidenceLimit = 1.5
	assert.ErrorContains(t, cfg.Validate(), "CONFIDENCE_THRESHOLD")

	cfg.ConfidenceLimit = -0.1
	assert.ErrorContains(t, cfg.Validate(), "CONFIDENCE_THRESHOLD")

	cfg.ConfidenceLimit = 1.0
	assert.NoError(t, cfg.Validate())
}

func TestValidateNegativeDurations(t *testing.T) {
	setRequiredKeys(t)

	cfg := FromEnv()
	cfg.MinInterruptionDuration = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "MIN_INTERRUPTION_DURATION")

	cfg = FromEnv()
	cfg.FalseInterruptionTimeout = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "FALSE_INTERRUPTION_TIMEOUT")
}
