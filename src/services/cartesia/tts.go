package cartesia

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
	"github.com/soft-signal-labs/floorgo-ai/src/processors"
)

// TTSService provides streaming text-to-speech using Cartesia. It brackets
// synthesized speech with TTSStartedFrame/TTSStoppedFrame so the
// interruption gate can track when the agent holds the floor, and cancels
// the active synthesis context when an InterruptionFrame arrives.
type TTSService struct {
	*processors.BaseProcessor
	apiKey          string
	voiceID         string
	model           string
	cartesiaVersion string
	language        string
	sampleRate      int
	encoding        string
	conn            *websocket.Conn
	ctx             context.Context
	cancel          context.CancelFunc
	contextID       string // Cartesia context ID for streaming
	log             *logger.Logger

	// Sentence aggregation
	textBuffer strings.Builder

	// Speaking state tracking
	isSpeaking bool
	mu         sync.Mutex
}

// TTSConfig holds configuration for Cartesia TTS
type TTSConfig struct {
	APIKey          string
	VoiceID         string
	Model           string // e.g., "sonic-3"
	CartesiaVersion string // e.g., "2025-04-16"
	Language        string // e.g., "en"
	SampleRate      int    // e.g., 8000, 16000, 24000
	Encoding        string // e.g., "pcm_s16le", "pcm_mulaw"
}

// NewTTSService creates a new Cartesia TTS service
func NewTTSService(config TTSConfig) *TTSService {
	if config.Model == "" {
		config.Model = "sonic-3"
	}
	if config.CartesiaVersion == "" {
		config.CartesiaVersion = "2025-04-16"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 24000
	}
	if config.Encoding == "" {
		config.Encoding = "pcm_s16le"
	}

	cs := &TTSService{
		apiKey:          config.APIKey,
		voiceID:         config.VoiceID,
		model:           config.Model,
		cartesiaVersion: config.CartesiaVersion,
		language:        config.Language,
		sampleRate:      config.SampleRate,
		encoding:        config.Encoding,
		log:             logger.WithPrefix("CartesiaTTS"),
	}
	cs.BaseProcessor = processors.NewBaseProcessor("CartesiaTTS", cs)
	return cs
}

func (s *TTSService) SetVoice(voiceID string) {
	s.voiceID = voiceID
}

func (s *TTSService) SetModel(model string) {
	s.model = model
}

func (s *TTSService) Initialize(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.contextID = uuid.New().String()

	wsURL := fmt.Sprintf("wss://api.cartesia.ai/tts/websocket?api_key=%s&cartesia_version=%s",
		s.apiKey, s.cartesiaVersion)

	var err error
	s.conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Cartesia: %w", err)
	}

	go s.receiveAudio()

	s.log.Info("Streaming mode connected (context: %s)", s.contextID)
	return nil
}

func (s *TTSService) Cleanup() error {
	if s.cancel != nil {
		s.cancel()
	}

	// Give goroutines a moment to see the context cancellation
	time.Sleep(50 * time.Millisecond)

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

func (s *TTSService) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch frame.(type) {
	case *frames.StartFrame:
		// Eager initialization so the first token has no connect latency
		if s.ctx == nil {
			if err := s.Initialize(ctx); err != nil {
				s.log.Error("Failed to initialize: %v", err)
				return s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
			}
		}
		return s.PushFrame(frame, direction)

	case *frames.EndFrame:
		s.log.Info("Received EndFrame, cleaning up")
		if err := s.Cleanup(); err != nil {
			s.log.Error("Error during cleanup: %v", err)
		}
		return s.PushFrame(frame, direction)

	case *frames.InterruptionFrame:
		return s.handleInterruption(frame, direction)

	case *frames.LLMFullResponseEndFrame:
		return s.handleResponseEnd(frame, direction)
	}

	if textFrame, ok := frame.(*frames.TextFrame); ok {
		if s.ctx == nil {
			if err := s.Initialize(ctx); err != nil {
				s.log.Error("Failed to initialize: %v", err)
				return s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
			}
		}
		return s.processTextInput(textFrame.Text)
	}

	// Pass all other frames through
	return s.PushFrame(frame, direction)
}

// handleInterruption cancels the active synthesis context. The cancel is
// sent regardless of speaking state so contexts never accumulate.
func (s *TTSService) handleInterruption(frame frames.Frame, direction frames.FrameDirection) error {
	s.mu.Lock()
	wasSpeaking := s.isSpeaking
	oldContextID := s.contextID
	s.isSpeaking = false
	s.textBuffer.Reset()
	s.contextID = ""
	s.mu.Unlock()

	s.log.Info("Interruption received, stopping synthesis (was_speaking=%v)", wasSpeaking)

	if s.conn != nil && oldContextID != "" {
		cancelMsg := map[string]interface{}{
			"context_id": oldContextID,
			"cancel":     true,
		}
		if err := s.conn.WriteJSON(cancelMsg); err != nil {
			s.log.Error("Error canceling context %s: %v", oldContextID, err)
		}
	}

	if wasSpeaking {
		s.PushFrame(frames.NewTTSStoppedFrame(), frames.Upstream)
	}

	return s.PushFrame(frame, direction)
}

// handleResponseEnd flushes buffered text and finalizes the context
func (s *TTSService) handleResponseEnd(frame frames.Frame, direction frames.FrameDirection) error {
	if s.textBuffer.Len() > 0 {
		remaining := s.textBuffer.String()
		s.textBuffer.Reset()
		if err := s.synthesizeText(remaining); err != nil {
			s.log.Error("Error synthesizing remaining text: %v", err)
		}
	}

	if s.conn != nil && s.contextID != "" {
		// continue=false signals end of transcript so Cartesia flushes
		if err := s.conn.WriteJSON(s.buildMessage("", false)); err != nil {
			s.log.Error("Error sending flush: %v", err)
		}

		s.mu.Lock()
		s.contextID = ""
		s.mu.Unlock()
	}
	return s.PushFrame(frame, direction)
}

// processTextInput buffers LLM output and synthesizes complete sentences
func (s *TTSService) processTextInput(text string) error {
	if text == "" {
		return nil
	}

	s.textBuffer.WriteString(text)
	sentences, remainder := extractSentences(s.textBuffer.String())

	s.textBuffer.Reset()
	s.textBuffer.WriteString(remainder)

	for _, sentence := range sentences {
		if sentence = strings.TrimSpace(sentence); sentence != "" {
			s.log.Debug("Synthesizing sentence: %s", sentence)
			if err := s.synthesizeText(sentence); err != nil {
				return err
			}
		}
	}
	return nil
}

// extractSentences splits text into complete sentences and remainder
func extractSentences(text string) ([]string, string) {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		switch r {
		case '.', '!', '?', ';':
			// End of text, or followed by a space: treat as sentence end
			if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	return sentences, current.String()
}

func (s *TTSService) synthesizeText(text string) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.contextID == "" {
		s.contextID = uuid.New().String()
		s.log.Debug("Generated new context ID: %s", s.contextID)
	}

	firstChunk := !s.isSpeaking
	s.isSpeaking = true
	s.mu.Unlock()

	if firstChunk {
		// Upstream so the interruption gate tracks agent speaking state,
		// downstream so the output side knows playback begins
		s.PushFrame(frames.NewTTSStartedFrame(), frames.Upstream)
		s.PushFrame(frames.NewTTSStartedFrame(), frames.Downstream)
	}

	if s.conn == nil {
		return fmt.Errorf("WebSocket connection not established")
	}
	return s.conn.WriteJSON(s.buildMessage(text, true))
}

func (s *TTSService) buildMessage(text string, continueTranscript bool) map[string]interface{} {
	return map[string]interface{}{
		"transcript": text,
		"continue":   continueTranscript,
		"context_id": s.contextID,
		"model_id":   s.model,
		"voice": map[string]interface{}{
			"mode": "id",
			"id":   s.voiceID,
		},
		"output_format": map[string]interface{}{
			"container":   "raw",
			"encoding":    s.encoding,
			"sample_rate": s.sampleRate,
		},
		"language": s.language,
	}
}

func (s *TTSService) receiveAudio() {
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug("Context cancelled, stopping audio receiver")
			return
		default:
			if s.conn == nil {
				return
			}

			_, message, err := s.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					s.log.Debug("Connection closed normally")
					return
				}
				s.log.Error("Error reading message: %v", err)
				s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
				return
			}

			var response struct {
				Type      string `json:"type"`
				ContextID string `json:"context_id"`
				Data      string `json:"data"`
				Done      bool   `json:"done"`
			}

			if err := json.Unmarshal(message, &response); err != nil {
				s.log.Error("Error parsing response: %v", err)
				continue
			}

			switch response.Type {
			case "chunk":
				audio, err := base64.StdEncoding.DecodeString(response.Data)
				if err != nil {
					s.log.Error("Error decoding audio chunk: %v", err)
					continue
				}
				s.PushFrame(frames.NewAudioFrame(audio, s.sampleRate, 1), frames.Downstream)

			case "done":
				s.mu.Lock()
				wasSpeaking := s.isSpeaking
				s.isSpeaking = false
				s.mu.Unlock()

				if wasSpeaking {
					s.log.Debug("Synthesis complete for context %s", response.ContextID)
					s.PushFrame(frames.NewTTSStoppedFrame(), frames.Upstream)
					s.PushFrame(frames.NewTTSStoppedFrame(), frames.Downstream)
				}

			case "error":
				s.log.Error("Cartesia error: %s", string(message))
			}
		}
	}
}
