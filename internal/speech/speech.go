// Package speech declares the audio collaborator boundary. Transcoding and
// transport are external concerns; the pipeline only hands text across.
package speech

import "context"

// Synthesizer renders narrative text to audio and returns an opaque handle.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (audioHandle string, err error)
}

// Transcriber converts an audio handle back to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioHandle string) (string, error)
}

// NopSynthesizer records the last script without producing audio. Used when
// no speech provider is configured and in tests.
type NopSynthesizer struct {
	LastText string
}

func (n *NopSynthesizer) Synthesize(_ context.Context, text, _ string) (string, error) {
	n.LastText = text
	return "", nil
}
