package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Synthesizer and Transcriber on the OpenAI audio APIs.
// Synthesized files land under MediaDir as mp3; transcription reads the
// audio ref as a local file path.
type OpenAI struct {
	client   openai.Client
	mediaDir string
}

var (
	_ Synthesizer = (*OpenAI)(nil)
	_ Transcriber = (*OpenAI)(nil)
)

func NewOpenAI(apiKey, mediaDir string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if mediaDir == "" {
		return nil, fmt.Errorf("media directory not set")
	}
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &OpenAI{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		mediaDir: mediaDir,
	}, nil
}

// Synthesize renders text to speech and returns the path of the written
// mp3 file. The language parameter is advisory; the TTS model infers
// pronunciation from the text itself.
func (o *OpenAI) Synthesize(ctx context.Context, text, language string) (string, error) {
	slog.Debug("OpenAI.Synthesize: requesting speech", "text_length", len(text), "language", language)
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoiceAlloy,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	ref := filepath.Join(o.mediaDir, uuid.NewString()+".mp3")
	f, err := os.Create(ref)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(ref)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	slog.Debug("OpenAI.Synthesize: wrote audio file", "ref", ref)
	return ref, nil
}

// Transcribe runs Whisper over a local audio file.
func (o *OpenAI) Transcribe(ctx context.Context, audioRef string) (string, error) {
	slog.Debug("OpenAI.Transcribe: transcribing audio", "ref", audioRef)
	f, err := os.Open(audioRef)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file %s: %w", audioRef, err)
	}
	defer f.Close()

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}
