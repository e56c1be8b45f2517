// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import "context"

// Transcript is a recognition result. Only Final results become turns.
type Transcript struct {
	Text  string
	Final bool
}

// RecognitionHandler receives platform recognition callbacks. End is called
// once when the platform stops listening on its own.
type RecognitionHandler struct {
	Result func(Transcript)
	End    func(err error)
}

// Recognizer is the platform speech-to-text capability.
type Recognizer interface {
	// Supported reports whether recognition is available at all.
	Supported() bool
	// Listen starts recognition. The returned stop function must be safe
	// to call more than once.
	Listen(ctx context.Context, lang string, h RecognitionHandler) (stop func(), err error)
}

// Utterance describes one piece of synthesized speech.
type Utterance struct {
	Text string
	Lang string
	Rate float64
}

// Synthesizer is the platform text-to-speech capability.
type Synthesizer interface {
	Supported() bool
	// Speak starts playback and calls done exactly once when playback
	// ends or is cancelled. cancel must be safe to call more than once.
	Speak(ctx context.Context, u Utterance, done func()) (cancel func(), err error)
}
