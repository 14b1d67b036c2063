package session

import (
	"errors"
	"strings"
	"time"

	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

// listenLocked opens a new recognition stream. The handler record is built
// once per call and carries the stream's generation so events from a
// superseded stream can never reach the current one.
func (o *Orchestrator) listenLocked(sess *liveSession, notes *[]func()) {
	o.setPhaseLocked(PhaseListening, notes)
	o.stopRequested = false
	o.listenGen++
	gen := o.listenGen

	handlers := speech.RecognitionHandlers{
		OnPartial:   func(transcript string, confidence float64) { o.handlePartial(sess, gen, transcript, confidence) },
		OnFinal:     func(transcript string, confidence float64) { o.handleFinal(sess, gen, transcript, confidence) },
		OnError:     func(kind speech.ErrorKind) { o.handleListenError(sess, gen, kind) },
		OnStreamEnd: func() { o.handleStreamEnd(sess, gen) },
	}

	if err := o.recognizer.Listen(o.baseCtx, handlers); err != nil {
		kind := classifyListenError(err)
		if !kind.Recoverable() {
			o.failLocked(kind, notes)
			return
		}
		logger.Warn("failed to start listening, retrying", "kind", kind, "error", err)
		o.retryListenLocked(sess, gen)
	}
}

func classifyListenError(err error) speech.ErrorKind {
	var speechErr *speech.Error
	if errors.As(err, &speechErr) {
		return speechErr.Kind
	}
	return speech.KindNetworkFailure
}

// handlePartial updates the pending utterance. No phase change.
func (o *Orchestrator) handlePartial(sess *liveSession, gen int, transcript string, confidence float64) {
	var notes []func()
	o.mu.Lock()
	if o.sess == sess && gen == o.listenGen && o.phase == PhaseListening {
		sess.pendingUtterance = transcript
		sess.pendingConfidence = confidence
		if cb := o.callbacks.onInterim; cb != nil {
			notes = append(notes, func() { cb(transcript, confidence) })
		}
	}
	o.mu.Unlock()
	runNotes(notes)
}

// handleFinal commits an utterance: user turn, policy reply, assistant turn,
// then speech. The recognition stream is stopped and the phase leaves
// Listening before the reply is handed to the synthesizer, so the speak can
// never overlap an active stream.
func (o *Orchestrator) handleFinal(sess *liveSession, gen int, transcript string, confidence float64) {
	var notes []func()
	o.mu.Lock()
	if o.sess != sess || gen != o.listenGen || o.phase != PhaseListening {
		o.mu.Unlock()
		return
	}

	sess.pendingUtterance = ""
	sess.pendingConfidence = 0

	text := strings.TrimSpace(transcript)
	if text == "" {
		// Empty utterances produce no turn and keep the stream going.
		if cb := o.callbacks.onInterim; cb != nil {
			notes = append(notes, func() { cb("", 0) })
		}
		o.mu.Unlock()
		runNotes(notes)
		return
	}

	o.stopRequested = true
	o.recognizer.Stop()

	o.appendTurnLocked(sess, store.SpeakerUser, text, confidence, &notes)
	reply := o.policy.Reply(text, sess.profile)
	o.appendTurnLocked(sess, store.SpeakerAssistant, reply, 1.0, &notes)
	o.speakLocked(sess, reply, &notes)
	o.mu.Unlock()
	runNotes(notes)
}

// handleListenError classifies a stream failure. Recoverable kinds leave the
// phase untouched; the restart is deferred to the stream's own end signal
// rather than issued from inside the error callback, which would re-enter the
// engine while it is still tearing down.
func (o *Orchestrator) handleListenError(sess *liveSession, gen int, kind speech.ErrorKind) {
	var notes []func()
	o.mu.Lock()
	if o.sess != sess || gen != o.listenGen {
		o.mu.Unlock()
		return
	}

	if kind.Recoverable() {
		logger.Warn("recoverable recognition error", "kind", kind)
	} else {
		o.failLocked(kind, &notes)
	}
	o.mu.Unlock()
	runNotes(notes)
}

// handleStreamEnd re-issues listening when the stream terminated on its own.
// Engines that end their stream after every utterance are covered here: the
// user never has to re-request listening between turns.
func (o *Orchestrator) handleStreamEnd(sess *liveSession, gen int) {
	var notes []func()
	o.mu.Lock()
	if o.sess == sess && gen == o.listenGen && o.phase == PhaseListening && !o.stopRequested {
		o.scheduleRestartLocked(sess, gen, &notes)
	}
	o.mu.Unlock()
	runNotes(notes)
}

// scheduleRestartLocked restarts listening after the configured cooldown. A
// zero cooldown restarts inline.
func (o *Orchestrator) scheduleRestartLocked(sess *liveSession, gen int, notes *[]func()) {
	if o.cooldown <= 0 {
		o.listenLocked(sess, notes)
		return
	}
	o.restartAfter(sess, gen, o.cooldown)
}

// retryListenLocked re-attempts a listen whose start failed. Always deferred,
// with a floor on the delay, so a persistently failing engine cannot drive a
// tight retry loop.
func (o *Orchestrator) retryListenLocked(sess *liveSession, gen int) {
	delay := o.cooldown
	if delay < 10*time.Millisecond {
		delay = 10 * time.Millisecond
	}
	o.restartAfter(sess, gen, delay)
}

func (o *Orchestrator) restartAfter(sess *liveSession, gen int, delay time.Duration) {
	time.AfterFunc(delay, func() {
		var notes []func()
		o.mu.Lock()
		if o.sess == sess && gen == o.listenGen && o.phase == PhaseListening && !o.stopRequested {
			o.listenLocked(sess, &notes)
		}
		o.mu.Unlock()
		runNotes(notes)
	})
}
