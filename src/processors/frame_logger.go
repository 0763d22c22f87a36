package processors

import (
	"context"
	"fmt"
	"reflect"

	"github.com/soft-signal-labs/floorgo-ai/src/frames"
	"github.com/soft-signal-labs/floorgo-ai/src/logger"
)

// FrameLogger is a processor that logs frame information for debugging.
// It intercepts frames, logs their details at DEBUG level and passes them
// through unchanged.
type FrameLogger struct {
	*BaseProcessor
	logger            *logger.Logger
	ignoredFrameTypes map[reflect.Type]bool
	logDirection      bool
}

// FrameLoggerConfig configures the frame logger
type FrameLoggerConfig struct {
	// Prefix for log messages (e.g., "Pipeline", "STT", "TTS")
	Prefix string

	// IgnoredFrameTypes are frame types to skip logging (e.g., high-frequency audio frames)
	IgnoredFrameTypes []frames.Frame

	// LogDirection includes frame direction (upstream/downstream) in logs
	LogDirection bool

	// Logger instance to use (if nil, uses default logger)
	Logger *logger.Logger
}

// NewFrameLogger creates a new frame logger processor
func NewFrameLogger(config FrameLoggerConfig) *FrameLogger {
	if config.Prefix == "" {
		config.Prefix = "Frame"
	}

	log := config.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	fl := &FrameLogger{
		logger:            log.WithPrefix(config.Prefix),
		ignoredFrameTypes: make(map[reflect.Type]bool),
		logDirection:      config.LogDirection,
	}

	// Build map of ignored frame types for fast lookup
	for _, frameType := range config.IgnoredFrameTypes {
		fl.ignoredFrameTypes[reflect.TypeOf(frameType)] = true
	}

	fl.BaseProcessor = NewBaseProcessor("FrameLogger:"+config.Prefix, fl)
	return fl
}

// HandleFrame processes and logs frame information
func (fl *FrameLogger) HandleFrame(ctx context.Context, frame frames.Frame, direction frames.FrameDirection) error {
	// Check if frame is nil (handle Go's interface nil gotcha)
	if frame == nil || reflect.ValueOf(frame).IsNil() {
		fl.logger.Warn("Received nil frame, skipping")
		return nil
	}

	if fl.ignoredFrameTypes[reflect.TypeOf(frame)] {
		return fl.PushFrame(frame, direction)
	}

	if fl.logger.IsLevelEnabled(logger.DEBUG) {
		fl.logger.Debug("%s", fl.formatFrameLog(frame, direction))
	}

	return fl.PushFrame(frame, direction)
}

func (fl *FrameLogger) formatFrameLog(frame frames.Frame, direction frames.FrameDirection) string {
	dirSymbol := ""
	if fl.logDirection {
		if direction == frames.Downstream {
			dirSymbol = "→ "
		} else {
			dirSymbol = "← "
		}
	}

	// Frames with interesting payloads implement String with detail
	switch f := frame.(type) {
	case *frames.TranscriptionFrame:
		return fmt.Sprintf("%s%s", dirSymbol, f.String())
	case *frames.TextFrame:
		text := f.Text
		if len(text) > 50 {
			text = text[:50] + "..."
		}
		return fmt.Sprintf("%s%s | text=%q", dirSymbol, f.Name(), text)
	case *frames.AudioFrame:
		return fmt.Sprintf("%s%s | %d bytes @ %d Hz", dirSymbol, f.Name(), len(f.Data), f.SampleRate)
	case *frames.ErrorFrame:
		return fmt.Sprintf("%s%s | %v", dirSymbol, f.Name(), f.Error)
	default:
		return fmt.Sprintf("%s%s", dirSymbol, frame.Name())
	}
}
