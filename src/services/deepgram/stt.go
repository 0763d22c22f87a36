package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soft-signal-labs/floorgo-ai/src/filter"
	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
	"github.com/soft-signal-labs/floorgo-ai/src/processors"
)

// STTService provides streaming speech-to-text using Deepgram. Every
// transcript is forwarded as a TranscriptionFrame carrying Deepgram's
// per-alternative confidence score, which the interruption gate uses for
// its confidence gate.
type STTService struct {
	*processors.BaseProcessor
	apiKey   string
	language string
	model    string
	encoding string
	conn     *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	connMu   sync.Mutex // Protects concurrent WebSocket writes
	log      *logger.Logger
}

// STTConfig holds configuration for Deepgram
type STTConfig struct {
	APIKey   string
	Language string // e.g., "en-US"
	Model    string // e.g., "nova-3"
	Encoding string // Supported: "mulaw"/"ulaw", "alaw", "linear16" (default: "linear16")
}

// NewSTTService creates a new Deepgram STT service
func NewSTTService(config STTConfig) *STTService {
	encoding := config.Encoding
	if encoding == "" {
		encoding = "linear16" // Default to PCM
	}

	ds := &STTService{
		apiKey:   config.APIKey,
		language: config.Language,
		model:    config.Model,
		encoding: normalizeEncoding(encoding),
		log:      logger.WithPrefix("DeepgramSTT"),
	}
	ds.BaseProcessor = processors.NewBaseProcessor("DeepgramSTT", ds)
	return ds
}

// normalizeEncoding converts codec name variations to Deepgram API format
func normalizeEncoding(encoding string) string {
	switch encoding {
	case "ulaw", "PCMU":
		return "mulaw"
	case "PCMA":
		return "alaw"
	case "pcm", "PCM":
		return "linear16"
	default:
		return encoding
	}
}

func (s *STTService) SetLanguage(lang string) {
	s.language = lang
}

func (s *STTService) SetModel(model string) {
	s.model = model
}

func (s *STTService) Initialize(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	// Telephony codecs are typically 8kHz, PCM defaults to 16kHz
	sampleRate := "16000"
	if s.encoding == "mulaw" || s.encoding == "alaw" {
		sampleRate = "8000"
	}

	params := url.Values{}
	params.Set("language", s.language)
	params.Set("model", s.model)
	params.Set("encoding", s.encoding)
	params.Set("sample_rate", sampleRate)
	params.Set("channels", "1")
	params.Set("interim_results", "true")

	wsURL := fmt.Sprintf("wss://api.deepgram.com/v1/listen?%s", params.Encode())

	header := map[string][]string{
		"Authorization": {fmt.Sprintf("Token %s", s.apiKey)},
	}

	var err error
	s.conn, _, err = websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	go s.receiveTranscriptions()
	go s.keepaliveTask()

	s.log.Info("Connected and initialized")
	return nil
}

func (s *STTService) Cleanup() error {
	// Cancel context first to signal goroutines to stop
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

func (s *STTService) reconnect(ctx context.Context) error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	return s.Initialize(ctx)
}

func (s *STTService) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	switch frame.(type) {
	case *frames.StartFrame:
		// Lazy initialization on first audio frame
		return s.PushFrame(frame, direction)

	case *frames.EndFrame:
		s.log.Info("Received EndFrame, cleaning up")
		if err := s.Cleanup(); err != nil {
			s.log.Error("Error during cleanup: %v", err)
		}
		return s.PushFrame(frame, direction)

	case *frames.InterruptionFrame:
		// Flush the current utterance so stale transcription fragments
		// do not leak through after the interruption
		if s.conn != nil {
			s.connMu.Lock()
			err := s.conn.WriteJSON(map[string]interface{}{"type": "Finalize"})
			s.connMu.Unlock()
			if err != nil {
				s.log.Error("Error sending finalize message: %v", err)
			} else {
				s.log.Debug("Sent finalize message to reset STT stream")
			}
		}
		return s.PushFrame(frame, direction)
	}

	if audioFrame, ok := frame.(*frames.AudioFrame); ok {
		return s.handleAudioFrame(ctx, audioFrame, direction)
	}

	// Pass all other frames through
	return s.PushFrame(frame, direction)
}

func (s *STTService) handleAudioFrame(ctx context.Context, audioFrame *frames.AudioFrame, direction frames.FrameDirection) error {
	if s.conn == nil {
		s.log.Debug("Lazy initializing on first AudioFrame")
		if err := s.Initialize(ctx); err != nil {
			s.log.Error("Failed to initialize: %v", err)
			return s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
		}
	}

	s.connMu.Lock()
	err := s.conn.WriteMessage(websocket.BinaryMessage, audioFrame.Data)
	s.connMu.Unlock()

	if err != nil {
		s.log.Error("Error sending audio: %v, attempting to reconnect", err)
		if reconnectErr := s.reconnect(ctx); reconnectErr != nil {
			s.log.Error("Reconnection failed: %v", reconnectErr)
			return s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
		}

		s.connMu.Lock()
		retryErr := s.conn.WriteMessage(websocket.BinaryMessage, audioFrame.Data)
		s.connMu.Unlock()

		if retryErr != nil {
			s.log.Error("Error sending audio after reconnect: %v", retryErr)
			return s.PushFrame(frames.NewErrorFrame(retryErr), frames.Upstream)
		}
	}

	// Pass AudioFrame downstream for audio-based interruption strategies
	return s.PushFrame(audioFrame, direction)
}

func (s *STTService) receiveTranscriptions() {
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug("Context cancelled, stopping transcription receiver")
			return
		default:
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
				IsFinal bool `json:"is_final"`
				Channel struct {
					Alternatives []struct {
						Transcript string  `json:"transcript"`
						Confidence float64 `json:"confidence"`
					} `json:"alternatives"`
				} `json:"channel"`
			}

			if err := json.Unmarshal(message, &response); err != nil {
				s.log.Error("Error parsing response: %v", err)
				continue
			}

			if len(response.Channel.Alternatives) == 0 {
				continue
			}

			alt := response.Channel.Alternatives[0]
			if alt.Transcript == "" {
				continue
			}

			confidence := alt.Confidence
			if confidence == 0 && !response.IsFinal {
				// Interim results may arrive unscored
				confidence = filter.NoConfidence
			}

			s.log.Debug("Transcription (final=%v, conf=%.2f): %s", response.IsFinal, confidence, alt.Transcript)
			s.PushFrame(frames.NewTranscriptionFrame(alt.Transcript, confidence, response.IsFinal), frames.Downstream)
		}
	}
}

func (s *STTService) keepaliveTask() {
	// Deepgram expects audio or a message within ~10 seconds
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.conn != nil {
				s.connMu.Lock()
				err := s.conn.WriteJSON(map[string]string{"type": "KeepAlive"})
				s.connMu.Unlock()

				if err != nil {
					s.log.Error("Error sending keepalive: %v", err)
					return
				}
			}
		}
	}
}
