package frames

import "fmt"

// DataFrame is the base for ordered data frames (text, audio, transcriptions)
type DataFrame struct {
	*BaseFrame
}

func (f *DataFrame) Category() FrameCategory {
	return DataCategory
}

// TextFrame carries a chunk of text through the pipeline
type TextFrame struct {
	*DataFrame
	Text string
}

func NewTextFrame(text string) *TextFrame {
	return &TextFrame{
		DataFrame: &DataFrame{
			BaseFrame: NewBaseFrame("TextFrame"),
		},
		Text: text,
	}
}

// AudioFrame carries raw audio data (PCM unless noted in metadata)
type AudioFrame struct {
	*DataFrame
	Data       []byte
	SampleRate int
	Channels   int
}

func NewAudioFrame(data []byte, sampleRate, channels int) *AudioFrame {
	return &AudioFrame{
		DataFrame: &DataFrame{
			BaseFrame: NewBaseFrame("AudioFrame"),
		},
		Data:       data,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// TranscriptionFrame carries STT output. Confidence is the engine's score
// for the transcript in [0, 1]; engines that do not score transcripts set
// it to a negative value (see filter.NoConfidence).
type TranscriptionFrame struct {
	*DataFrame
	Text       string
	Confidence float64
	IsFinal    bool
}

func NewTranscriptionFrame(text string, confidence float64, isFinal bool) *TranscriptionFrame {
	return &TranscriptionFrame{
		DataFrame: &DataFrame{
			BaseFrame: NewBaseFrame("TranscriptionFrame"),
		},
		Text:       text,
		Confidence: confidence,
		IsFinal:    isFinal,
	}
}

func (f *TranscriptionFrame) String() string {
	return fmt.Sprintf("TranscriptionFrame[id=%d, final=%v, conf=%.2f, text=%q]",
		f.ID(), f.IsFinal, f.Confidence, f.Text)
}
