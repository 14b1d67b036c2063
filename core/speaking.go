package session

import (
	"github.com/vitallic/vitallic-core/core/speech"
)

// speakLocked hands text to the synthesizer. The phase flips to Speaking
// before the engine is invoked; the engine's completion arrives later as a
// separate event carrying this request's generation.
func (o *Orchestrator) speakLocked(sess *liveSession, text string, notes *[]func()) {
	o.setPhaseLocked(PhaseSpeaking, notes)
	o.speakGen++
	gen := o.speakGen

	handlers := speech.SynthesisHandlers{
		OnDone:  func() { o.handleSpeechDone(sess, gen) },
		OnError: func(kind speech.ErrorKind) { o.handleSpeechError(sess, gen, kind) },
	}

	if err := o.synthesizer.Speak(o.baseCtx, text, sess.profile.Prosody(), handlers); err != nil {
		// A speak that cannot start is treated like a synthesis failure:
		// log and move on to listening as if it had completed.
		logger.Warn("synthesis failed to start, skipping to listening", "error", err)
		o.listenLocked(sess, notes)
	}
}

// handleSpeechDone closes the conversational loop: reply played, listen
// again.
func (o *Orchestrator) handleSpeechDone(sess *liveSession, gen int) {
	var notes []func()
	o.mu.Lock()
	if o.sess == sess && gen == o.speakGen && o.phase == PhaseSpeaking {
		o.listenLocked(sess, &notes)
	}
	o.mu.Unlock()
	runNotes(notes)
}

func (o *Orchestrator) handleSpeechError(sess *liveSession, gen int, kind speech.ErrorKind) {
	var notes []func()
	o.mu.Lock()
	if o.sess != sess || gen != o.speakGen || o.phase != PhaseSpeaking {
		o.mu.Unlock()
		return
	}

	if kind.Recoverable() {
		logger.Warn("synthesis failed, continuing to listen", "kind", kind)
		o.listenLocked(sess, &notes)
	} else {
		o.failLocked(kind, &notes)
	}
	o.mu.Unlock()
	runNotes(notes)
}
