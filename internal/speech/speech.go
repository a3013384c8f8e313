// Package speech converts between text and audio for the voice channel.
// Synthesized audio is written under a media directory and referenced by
// path; the dispatcher forwards that ref to the voice sender.
package speech

import (
	"context"
	"fmt"
	"sync"
)

// Synthesizer renders text to an audio file and returns its ref.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (string, error)
}

// Transcriber converts an inbound audio ref to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// MockSynthesizer records synthesize calls and returns canned refs. When Err
// is set every call fails with it.
type MockSynthesizer struct {
	mu    sync.Mutex
	Err   error
	Calls []string
}

var _ Synthesizer = (*MockSynthesizer)(nil)

func (m *MockSynthesizer) Synthesize(_ context.Context, text, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Calls = append(m.Calls, text)
	return fmt.Sprintf("mock-audio-%d.mp3", len(m.Calls)), nil
}

// MockTranscriber returns a fixed transcript for every audio ref.
type MockTranscriber struct {
	mu         sync.Mutex
	Err        error
	Transcript string
	Calls      []string
}

var _ Transcriber = (*MockTranscriber)(nil)

func (m *MockTranscriber) Transcribe(_ context.Context, audioRef string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Calls = append(m.Calls, audioRef)
	if m.Transcript != "" {
		return m.Transcript, nil
	}
	return "mock transcript", nil
}
