package session

import (
	"time"

	"github.com/vitallic/vitallic-core/core/policy"
	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

type OrchestratorOption func(*Orchestrator)

// WithRecognizer configures the recognition capability.
func WithRecognizer(client speech.Recognizer) OrchestratorOption {
	return func(o *Orchestrator) { o.recognizer = client }
}

// WithSynthesizer configures the synthesis capability.
func WithSynthesizer(client speech.Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

// WithStore configures the record store gateway. Without one every session
// runs in degraded (non-persisted) mode.
func WithStore(gateway store.Gateway) OrchestratorOption {
	return func(o *Orchestrator) { o.gateway = gateway }
}

// Policy maps recognized text to replies. Implementations are treated as
// opaque synchronous functions; the orchestrator performs no retries on them.
type Policy interface {
	Greeting(profile Profile) string
	Reply(userText string, profile Profile) string
}

// WithPolicy replaces the default keyword policy.
func WithPolicy(p Policy) OrchestratorOption {
	return func(o *Orchestrator) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithFlowID sets the conversation flow recorded on call creation.
func WithFlowID(flowID string) OrchestratorOption {
	return func(o *Orchestrator) { o.flowID = flowID }
}

// WithRestartCooldown sets the pause before re-listening after a recoverable
// failure or a bare stream end. Zero restarts inline; the default keeps a
// small pause so persistent no-speech conditions do not spin.
func WithRestartCooldown(cooldown time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.cooldown = cooldown }
}

// WithClock overrides the time source. Test seam.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTurnCallback registers a callback invoked on every Turn creation, user
// and assistant alike, in transcript order.
func WithTurnCallback(callback func(Turn)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onTurn = callback }
}

// WithInterimTranscriptCallback registers a callback for in-progress
// recognition updates of the pending utterance.
func WithInterimTranscriptCallback(callback func(transcript string, confidence float64)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onInterim = callback }
}

// WithPhaseCallback registers a callback invoked on every phase transition.
func WithPhaseCallback(callback func(Phase)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onPhase = callback }
}

// WithErrorCallback registers a callback for user-visible failures. Only
// unrecoverable kinds reach it; recoverable ones are logged and retried.
func WithErrorCallback(callback func(kind speech.ErrorKind)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onError = callback }
}

type runCallbacks struct {
	onTurn    func(Turn)
	onInterim func(transcript string, confidence float64)
	onPhase   func(Phase)
	onError   func(kind speech.ErrorKind)
}

// keywordPolicy is the default, pattern-matching responder. It stands in for
// any pluggable dialogue policy.
type keywordPolicy struct{}

func (keywordPolicy) Greeting(profile Profile) string {
	return policy.Greeting(policy.ToneOf(profile.Tone))
}

func (keywordPolicy) Reply(userText string, profile Profile) string {
	return policy.Reply(userText, policy.ToneOf(profile.Tone))
}
