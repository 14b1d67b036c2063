package speech

import "context"

// RecognitionHandlers is the handler record for one Listen call. It is passed
// once, up front; implementations must not expose any way to re-register
// handlers on a running stream.
type RecognitionHandlers struct {
	// OnPartial is called zero or more times per utterance with the
	// in-progress transcript and the engine's confidence for it.
	OnPartial func(transcript string, confidence float64)
	// OnFinal is called exactly once per utterance once the engine judges it
	// complete.
	OnFinal func(transcript string, confidence float64)
	// OnError is called when the stream fails. The stream still terminates
	// through OnStreamEnd afterwards.
	OnError func(kind ErrorKind)
	// OnStreamEnd is called exactly once when the underlying stream
	// terminates, for any reason including errors.
	OnStreamEnd func()
}

// Recognizer is the recognition capability. Implementations own the
// microphone for the duration of a stream.
type Recognizer interface {
	// Listen begins continuous recognition. It returns as soon as the stream
	// is established; results arrive through the handlers. Implementations do
	// not restart themselves after the stream ends, that policy belongs to
	// the caller. Calling Listen while a prior stream is active closes the
	// prior stream first.
	Listen(ctx context.Context, handlers RecognitionHandlers) error
	// Stop requests the active stream to end. Safe to call when no stream is
	// active.
	Stop()
}

// Prosody carries the per-utterance synthesis parameters. Ranges follow the
// profile contract: pitch in [0,2], rate in [0.1,10], volume in [0,1].
type Prosody struct {
	Pitch  float64
	Rate   float64
	Volume float64
}

// SynthesisHandlers is the handler record for one Speak call. Exactly one of
// OnDone or OnError is invoked, exactly once.
type SynthesisHandlers struct {
	OnDone  func()
	OnError func(kind ErrorKind)
}

// Synthesizer is the synthesis capability.
type Synthesizer interface {
	// Speak synthesizes and plays text with the given prosody. It returns as
	// soon as playback is underway; completion arrives through the handlers.
	Speak(ctx context.Context, text string, prosody Prosody, handlers SynthesisHandlers) error
	// Stop cancels any in-progress playback immediately. Safe to call with no
	// active playback.
	Stop()
}
