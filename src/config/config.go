package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/soft-signal-labs/floorgo-ai/src/logger"
)

// DefaultIgnoredWords is the comma-separated filler list used when
// IGNORED_WORDS is not set.
const DefaultIgnoredWords = "uh,umm,hmm,haan,um,er,ah"

// AgentConfig holds every setting the voice agent and its speech filter
// depend on. It is loaded once at startup from the environment.
type AgentConfig struct {
	// Provider credentials
	DeepgramAPIKey string
	OpenAIAPIKey   string
	CartesiaAPIKey string

	// Interruption handling parameters
	IgnoredWords        []string
	ConfidenceLimit     float64
	AllowDynamicUpdates bool

	// Behavioral tuning parameters
	MinInterruptionDuration  time.Duration
	FalseInterruptionTimeout time.Duration
	ResumeOnFalse            bool
}

// LoadDotenv loads a .env file if one is present. Missing files are fine;
// the process environment always wins.
func LoadDotenv() {
	if err := godotenv.Load(); err == nil {
		logger.Debug("[Config] Loaded .env file")
	}
}

// FromEnv builds an AgentConfig from environment variables, falling back
// to safe defaults where a variable is unset.
func FromEnv() *AgentConfig {
	fillers := getEnv("IGNORED_WORDS", DefaultIgnoredWords)
	ignored := make([]string, 0)
	for _, w := range strings.Split(fillers, ",") {
		if w = strings.TrimSpace(w); w != "" {
			ignored = append(ignored, w)
		}
	}

	return &AgentConfig{
		DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		CartesiaAPIKey: os.Getenv("CARTESIA_API_KEY"),

		IgnoredWords:        ignored,
		ConfidenceLimit:     getEnvFloat("CONFIDENCE_THRESHOLD", 0.5),
		AllowDynamicUpdates: getEnvBool("ENABLE_DYNAMIC_UPDATES", false),

		MinInterruptionDuration:  getEnvDuration("MIN_INTERRUPTION_DURATION", 300*time.Millisecond),
		FalseInterruptionTimeout: getEnvDuration("FALSE_INTERRUPTION_TIMEOUT", 1500*time.Millisecond),
		ResumeOnFalse:            getEnvBool("RESUME_FALSE_INTERRUPTION", true),
	}
}

// Validate checks the configuration before the agent starts. Confidence
// range validation lives here, not in the filter layer.
func (c *AgentConfig) Validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is missing from the environment")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is missing from the environment")
	}
	if c.CartesiaAPIKey == "" {
		return fmt.Errorf("CARTESIA_API_KEY is missing from the environment")
	}

	if c.ConfidenceLimit < 0.0 || c.ConfidenceLimit > 1.0 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0.0 and 1.0, got %.2f", c.ConfidenceLimit)
	}

	if c.MinInterruptionDuration < 0 {
		return fmt.Errorf("MIN_INTERRUPTION_DURATION cannot be negative")
	}
	if c.FalseInterruptionTimeout < 0 {
		return fmt.Errorf("FALSE_INTERRUPTION_TIMEOUT cannot be negative")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("[Config] Invalid float for %s: %q, using %.2f", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

// getEnvDuration parses a duration expressed in seconds (e.g. "0.3"),
// matching how the deployment tooling writes these values.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("[Config] Invalid duration for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}
