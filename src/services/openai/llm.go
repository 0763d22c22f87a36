package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
	"github.com/soft-signal-labs/floorgo-ai/src/processors"
	"github.com/soft-signal-labs/floorgo-ai/src/services"
)

const completionsURL = "https://api.openai.com/v1/chat/completions"

// LLMService provides language model capabilities using OpenAI. Final user
// transcriptions are added to the conversation context and answered with a
// streamed completion pushed downstream as TextFrames. An interruption
// aborts the in-flight generation.
type LLMService struct {
	*processors.BaseProcessor
	apiKey      string
	model       string
	temperature float64
	context     *services.LLMContext
	ctx         context.Context
	cancel      context.CancelFunc
	log         *logger.Logger

	genCancel context.CancelFunc
	genMu     sync.Mutex
}

// LLMConfig holds configuration for OpenAI
type LLMConfig struct {
	APIKey       string
	Model        string // e.g., "gpt-4o-mini"
	SystemPrompt string
	Temperature  float64
}

// NewLLMService creates a new OpenAI LLM service
func NewLLMService(config LLMConfig) *LLMService {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	ls := &LLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		temperature: config.Temperature,
		context:     services.NewLLMContext(config.SystemPrompt),
		log:         logger.WithPrefix("OpenAI"),
	}
	ls.BaseProcessor = processors.NewBaseProcessor("OpenAI", ls)
	return ls
}

func (s *LLMService) SetModel(model string) {
	s.model = model
}

func (s *LLMService) SetSystemPrompt(prompt string) {
	s.context.SystemPrompt = prompt
}

func (s *LLMService) SetTemperature(temp float64) {
	s.temperature = temp
}

func (s *LLMService) AddMessage(role, content string) {
	s.context.Messages = append(s.context.Messages, services.LLMMessage{
		Role:    role,
		Content: content,
	})
}

func (s *LLMService) ClearContext() {
	s.context.Clear()
}

func (s *LLMService) Initialize(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.log.Info("Initialized with model %s", s.model)
	return nil
}

func (s *LLMService) Cleanup() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *LLMService) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	if _, ok := frame.(*frames.StartFrame); ok {
		if s.ctx == nil {
			if err := s.Initialize(ctx); err != nil {
				return s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
			}
		}
		return s.PushFrame(frame, direction)
	}

	// An interruption means the user took the floor; abort any in-flight
	// generation so stale text stops flowing to TTS
	if _, ok := frame.(*frames.InterruptionFrame); ok {
		s.genMu.Lock()
		if s.genCancel != nil {
			s.log.Info("Interruption received, aborting in-flight generation")
			s.genCancel()
			s.genCancel = nil
		}
		s.genMu.Unlock()
		return s.PushFrame(frame, direction)
	}

	// Final user transcriptions drive the conversation
	if transcriptionFrame, ok := frame.(*frames.TranscriptionFrame); ok {
		if !transcriptionFrame.IsFinal {
			return nil
		}

		s.context.AddUserMessage(transcriptionFrame.Text)
		s.log.Info("User: %s", transcriptionFrame.Text)

		s.PushFrame(frames.NewLLMFullResponseStartFrame(), frames.Downstream)

		if err := s.generateResponse(); err != nil {
			s.log.Error("Error generating response: %v", err)
			s.PushFrame(frames.NewErrorFrame(err), frames.Upstream)
		}

		s.PushFrame(frames.NewLLMFullResponseEndFrame(), frames.Downstream)
		return nil
	}

	// Pass all other frames through
	return s.PushFrame(frame, direction)
}

func (s *LLMService) generateResponse() error {
	messages := []map[string]string{
		{"role": "system", "content": s.context.SystemPrompt},
	}
	for _, msg := range s.context.Messages {
		messages = append(messages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	requestBody := map[string]interface{}{
		"model":       s.model,
		"messages":    messages,
		"temperature": s.temperature,
		"stream":      true,
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}

	genCtx, genCancel := context.WithCancel(s.ctx)
	s.genMu.Lock()
	s.genCancel = genCancel
	s.genMu.Unlock()

	defer func() {
		genCancel()
		s.genMu.Lock()
		s.genCancel = nil
		s.genMu.Unlock()
	}()

	req, err := http.NewRequestWithContext(genCtx, http.MethodPost, completionsURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("OpenAI API error: %s", string(body))
	}

	// Stream SSE response, pushing each delta downstream as a TextFrame
	var fullResponse strings.Builder
	scanner := bufio.NewScanner(resp.Body)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}

		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content := chunk.Choices[0].Delta.Content
			fullResponse.WriteString(content)
			s.PushFrame(frames.NewTextFrame(content), frames.Downstream)
		}
	}

	if err := scanner.Err(); err != nil && genCtx.Err() == nil {
		return err
	}

	if fullResponse.Len() > 0 {
		s.context.AddAssistantMessage(fullResponse.String())
		s.log.Info("Assistant: %s", fullResponse.String())
	}
	return nil
}
