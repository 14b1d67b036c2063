// Package session implements the voice session orchestrator: the state
// machine that owns the listen/speak lifecycle of one call, commits
// recognized utterances into turns, speaks replies, restarts listening after
// recognizer failures and records everything through the record store
// gateway.
//
// The orchestrator is a cooperative event handler. Adapter callbacks,
// persistence completions and the external begin/end requests are all
// processed one at a time under a single mutex; phase decisions happen
// synchronously inside the handler that triggers them, before any engine
// operation completes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

const (
	defaultFlowID          = "default-flow"
	defaultRestartCooldown = 300 * time.Millisecond

	// createCallTimeout bounds the one persistence call Begin waits for.
	createCallTimeout = 5 * time.Second
)

type Orchestrator struct {
	mu sync.Mutex

	phase Phase
	sess  *liveSession

	recognizer  speech.Recognizer
	synthesizer speech.Synthesizer
	gateway     store.Gateway
	policy      Policy
	persist     *persister

	callbacks runCallbacks
	flowID    string
	cooldown  time.Duration
	now       func() time.Time

	// listenGen and speakGen identify the current recognition stream and
	// synthesis request. Events carrying a stale generation belong to an
	// activity that was already stopped and are discarded.
	listenGen int
	speakGen  int
	// stopRequested marks that the active recognition stream was asked to
	// end, so its terminal OnStreamEnd must not trigger an auto-restart.
	stopRequested bool

	baseCtx   context.Context
	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		phase:    PhaseIdle,
		policy:   keywordPolicy{},
		flowID:   defaultFlowID,
		cooldown: defaultRestartCooldown,
		now:      time.Now,
		baseCtx:  context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.gateway != nil {
		o.persist = newPersister()
	}

	return o
}

// Available reports whether both speech capabilities are configured. Begin
// refuses to start a session when this is false.
func (o *Orchestrator) Available() bool {
	return o.recognizer != nil && o.synthesizer != nil
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Begin starts a session with the given profile: a call record is created
// (its failure degrades persistence but never blocks the conversation), the
// greeting is spoken and the conversational loop takes over. It returns the
// session id.
func (o *Orchestrator) Begin(ctx context.Context, profile Profile) (string, error) {
	ctx, span := tracer.Start(ctx, "begin session")
	defer span.End()

	var notes []func()
	o.mu.Lock()
	if o.sess != nil || o.phase != PhaseIdle {
		o.mu.Unlock()
		return "", ErrSessionActive
	}
	if !o.Available() {
		o.mu.Unlock()
		return "", speech.NewError(speech.KindCapabilityMissing, "recognition and synthesis capabilities are both required")
	}

	sess := &liveSession{id: uuid.NewString(), profile: profile, startedAt: o.now()}
	o.sess = sess
	// The session outlives Begin; its engine calls must not die with the
	// caller's context, only with an explicit End.
	o.baseCtx = context.WithoutCancel(ctx)
	o.setPhaseLocked(PhaseStarting, &notes)
	o.mu.Unlock()
	runNotes(notes)
	notes = nil

	callID, err := o.createCall(ctx, sess, profile)
	if err != nil {
		span.RecordError(err)
		logger.Warn("call record creation failed, continuing without persistence",
			"session", sess.id, "error", err)
	}

	o.mu.Lock()
	if o.sess != sess {
		o.mu.Unlock()
		return "", ErrSessionEnded
	}
	sess.callID = callID

	greeting := o.policy.Greeting(profile)
	o.appendTurnLocked(sess, store.SpeakerAssistant, greeting, 1.0, &notes)
	o.speakLocked(sess, greeting, &notes)
	o.mu.Unlock()
	runNotes(notes)

	return sess.id, nil
}

// createCall is the one store operation whose outcome changes behavior: an
// empty id puts the session into degraded mode for its lifetime.
func (o *Orchestrator) createCall(ctx context.Context, sess *liveSession, profile Profile) (string, error) {
	if o.gateway == nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, createCallTimeout)
	defer cancel()
	return o.gateway.CreateCall(ctx, sess.id, profile.ID, o.flowID)
}

// End stops the session: both adapters are preempted, the call record is
// closed with the elapsed whole seconds, and the orchestrator returns to
// Idle ready for a new session. Safe to call with no live session.
func (o *Orchestrator) End(ctx context.Context) {
	var notes []func()
	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return
	}

	o.setPhaseLocked(PhaseEnding, &notes)
	o.stopRequested = true
	o.listenGen++
	o.speakGen++
	o.recognizer.Stop()
	o.synthesizer.Stop()

	duration := int(o.now().Sub(sess.startedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	callID := sess.callID
	o.sess = nil
	o.setPhaseLocked(PhaseIdle, &notes)
	o.mu.Unlock()

	if callID != "" && o.persist != nil {
		o.persist.enqueue("close call", func(ctx context.Context) error {
			return o.gateway.CloseCall(ctx, callID, duration)
		})
	}
	runNotes(notes)
}

// Close ends any live session and drains the persistence queue.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.End(context.Background())
		if o.persist != nil {
			o.persist.Close()
		}
	})
}

// Snapshot is a point-in-time view of session state for presentation
// collaborators.
type Snapshot struct {
	SessionID         string
	Phase             Phase
	Profile           Profile
	CallID            string
	Degraded          bool
	PendingUtterance  string
	PendingConfidence float64
	Transcript        []Turn
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := Snapshot{Phase: o.phase}
	if o.sess == nil {
		return snapshot
	}

	snapshot.SessionID = o.sess.id
	snapshot.Profile = o.sess.profile
	snapshot.CallID = o.sess.callID
	snapshot.Degraded = o.sess.callID == ""
	snapshot.PendingUtterance = o.sess.pendingUtterance
	snapshot.PendingConfidence = o.sess.pendingConfidence
	if err := copier.Copy(&snapshot.Transcript, o.sess.transcript); err != nil {
		logger.Warn("failed to copy transcript into snapshot", "error", err)
	}
	return snapshot
}

// setPhaseLocked records a transition and defers the phase callback until
// the mutex is released.
func (o *Orchestrator) setPhaseLocked(phase Phase, notes *[]func()) {
	if o.phase == phase {
		return
	}
	o.phase = phase

	if cb := o.callbacks.onPhase; cb != nil {
		*notes = append(*notes, func() { cb(phase) })
	}
}

// appendTurnLocked creates a turn, appends it to the transcript and enqueues
// its persistence. Persistence writes are issued in transcript order; their
// completions may arrive in any order.
func (o *Orchestrator) appendTurnLocked(sess *liveSession, speaker store.Speaker, message string, confidence float64, notes *[]func()) Turn {
	turn := Turn{
		ID:         uuid.NewString(),
		Speaker:    speaker,
		Message:    message,
		Timestamp:  o.now(),
		Confidence: confidence,
	}
	sess.transcript = append(sess.transcript, turn)

	if sess.callID != "" && o.persist != nil {
		callID := sess.callID
		o.persist.enqueue("append transcript", func(ctx context.Context) error {
			return o.gateway.AppendTranscript(ctx, callID, turn.Speaker, turn.Message, turn.Timestamp, turn.Confidence)
		})
	}

	if cb := o.callbacks.onTurn; cb != nil {
		*notes = append(*notes, func() { cb(turn) })
	}
	return turn
}

// failLocked handles an unrecoverable adapter failure: stop everything,
// surface the kind, return to Idle. The call record is left as-is; whether to
// close it is the external caller's decision.
func (o *Orchestrator) failLocked(kind speech.ErrorKind, notes *[]func()) {
	logger.Error("unrecoverable speech failure, ending session", "kind", kind)

	o.stopRequested = true
	o.listenGen++
	o.speakGen++
	o.recognizer.Stop()
	o.synthesizer.Stop()
	o.sess = nil
	o.setPhaseLocked(PhaseEnding, notes)
	o.setPhaseLocked(PhaseIdle, notes)

	if cb := o.callbacks.onError; cb != nil {
		*notes = append(*notes, func() { cb(kind) })
	}
}

// runNotes invokes deferred callbacks outside the mutex so that observers may
// call back into the orchestrator.
func runNotes(notes []func()) {
	for _, note := range notes {
		note()
	}
}
