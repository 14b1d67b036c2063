package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

type stubRecognizer struct {
	mu          sync.Mutex
	listenCalls int
	stopCalls   int
	listenErr   error
	handlers    []speech.RecognitionHandlers
	contexts    []context.Context
}

func (s *stubRecognizer) Listen(ctx context.Context, handlers speech.RecognitionHandlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenCalls++
	if s.listenErr != nil {
		return s.listenErr
	}
	s.handlers = append(s.handlers, handlers)
	s.contexts = append(s.contexts, ctx)
	return nil
}

func (s *stubRecognizer) lastContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts[len(s.contexts)-1]
}

func (s *stubRecognizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
}

func (s *stubRecognizer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenCalls
}

func (s *stubRecognizer) stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}

func (s *stubRecognizer) stream(i int) speech.RecognitionHandlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[i]
}

func (s *stubRecognizer) lastStream() speech.RecognitionHandlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[len(s.handlers)-1]
}

func (s *stubRecognizer) setListenErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenErr = err
}

type stubSynthesizer struct {
	mu        sync.Mutex
	speakErr  error
	stopCalls int
	texts     []string
	prosodies []speech.Prosody
	handlers  []speech.SynthesisHandlers
}

func (s *stubSynthesizer) Speak(_ context.Context, text string, prosody speech.Prosody, handlers speech.SynthesisHandlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speakErr != nil {
		return s.speakErr
	}
	s.texts = append(s.texts, text)
	s.prosodies = append(s.prosodies, prosody)
	s.handlers = append(s.handlers, handlers)
	return nil
}

func (s *stubSynthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
}

func (s *stubSynthesizer) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.texts...)
}

func (s *stubSynthesizer) finish(i int) {
	s.mu.Lock()
	handlers := s.handlers[i]
	s.mu.Unlock()
	handlers.OnDone()
}

type fakeGateway struct {
	mu        sync.Mutex
	createErr error

	ops            []string
	messages       []string
	speakers       []store.Speaker
	closedCallID   string
	closedDuration int
}

func (g *fakeGateway) CreateCall(_ context.Context, sessionID, profileID, flowID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.ops = append(g.ops, "create")
	return "call-1", nil
}

func (g *fakeGateway) CloseCall(_ context.Context, callID string, durationSeconds int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, "close")
	g.closedCallID = callID
	g.closedDuration = durationSeconds
	return nil
}

func (g *fakeGateway) AppendTranscript(_ context.Context, callID string, speaker store.Speaker, message string, _ time.Time, _ float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, "append")
	g.speakers = append(g.speakers, speaker)
	g.messages = append(g.messages, message)
	return nil
}

func (g *fakeGateway) ListCalls(context.Context, int) ([]store.Call, error) { return nil, nil }
func (g *fakeGateway) ListTranscripts(context.Context, string) ([]store.Transcript, error) {
	return nil, nil
}
func (g *fakeGateway) ListProfiles(context.Context) ([]store.VoiceProfile, error) { return nil, nil }

func (g *fakeGateway) operations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.ops...)
}

// echoPolicy keeps loop tests independent of the phrase tables.
type echoPolicy struct{}

func (echoPolicy) Greeting(Profile) string             { return "welkom" }
func (echoPolicy) Reply(text string, _ Profile) string { return "re: " + text }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testProfile() Profile {
	return Profile{ID: "profile-1", Name: "Test", Tone: "friendly", Language: "nl-NL", Pitch: 1.1, Rate: 1.0, Volume: 1.0}
}

func TestBeginSpeaksGreeting(t *testing.T) {
	recognizer := &stubRecognizer{}
	synthesizer := &stubSynthesizer{}
	gateway := &fakeGateway{}

	orchestrator := NewOrchestrator(
		WithRecognizer(recognizer),
		WithSynthesizer(synthesizer),
		WithStore(gateway),
		WithPolicy(echoPolicy{}),
		WithRestartCooldown(0),
	)
	defer orchestrator.Close()

	sessionID, err := orchestrator.Begin(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a session id")
	}

	if got := orchestrator.Phase(); got != PhaseSpeaking {
		t.Fatalf("expected phase %s, got %s", PhaseSpeaking, got)
	}
	if spoken := synthesizer.spoken(); len(spoken) != 1 || spoken[0] != "welkom" {
		t.Fatalf("expected the greeting to be spoken, got %v", spoken)
	}

	snapshot := orchestrator.Snapshot()
	if snapshot.Degraded {
		t.Error("expected a persisted session")
	}
	if len(snapshot.Transcript) != 1 || snapshot.Transcript[0].Speaker != store.SpeakerAssistant {
		t.Fatalf("expected one assistant turn, got %+v", snapshot.Transcript)
	}
	if recognizer.calls() != 0 {
		t.Errorf("expected no listening before the greeting finishes, got %d", recognizer.calls())
	}
}

func TestBeginWhileActive(t *testing.T) {
	orchestrator := NewOrchestrator(
		WithRecognizer(&stubRecognizer{}),
		WithSynthesizer(&stubSynthesizer{}),
		WithPolicy(echoPolicy{}),
	)
	defer orchestrator.Close()

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := orchestrator.Begin(context.Background(), testProfile()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestBeginWithoutCapabilities(t *testing.T) {
	orchestrator := NewOrchestrator(WithRecognizer(&stubRecognizer{}))
	defer orchestrator.Close()

	_, err := orchestrator.Begin(context.Background(), testProfile())
	var speechErr *speech.Error
	if !errors.As(err, &speechErr) || speechErr.Kind != speech.KindCapabilityMissing {
		t.Fatalf("expected a capability-missing error, got %v", err)
	}
	if got := orchestrator.Phase(); got != PhaseIdle {
		t.Fatalf("expected phase %s, got %s", PhaseIdle, got)
	}
}

func TestEndClosesCallWithElapsedSeconds(t *testing.T) {
	recognizer := &stubRecognizer{}
	synthesizer := &stubSynthesizer{}
	gateway := &fakeGateway{}
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	orchestrator := NewOrchestrator(
		WithRecognizer(recognizer),
		WithSynthesizer(synthesizer),
		WithStore(gateway),
		WithPolicy(echoPolicy{}),
		WithClock(clock.now),
		WithRestartCooldown(0),
	)

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.advance(125*time.Second + 700*time.Millisecond)
	orchestrator.Close()

	if gateway.closedCallID != "call-1" {
		t.Fatalf("expected call-1 to be closed, got %q", gateway.closedCallID)
	}
	if gateway.closedDuration != 125 {
		t.Errorf("expected duration 125, got %d", gateway.closedDuration)
	}
	if recognizer.stops() == 0 || synthesizer.stopCalls == 0 {
		t.Error("expected both engines to be stopped")
	}
	if got := orchestrator.Phase(); got != PhaseIdle {
		t.Errorf("expected phase %s, got %s", PhaseIdle, got)
	}
}

func TestSessionSurvivesBeginContextCancel(t *testing.T) {
	recognizer := &stubRecognizer{}
	synthesizer := &stubSynthesizer{}

	orchestrator := NewOrchestrator(
		WithRecognizer(recognizer),
		WithSynthesizer(synthesizer),
		WithPolicy(echoPolicy{}),
		WithRestartCooldown(0),
	)
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := orchestrator.Begin(ctx, testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	synthesizer.finish(0)

	if got := orchestrator.Phase(); got != PhaseListening {
		t.Fatalf("expected phase %s after the caller's context died, got %s", PhaseListening, got)
	}
	if recognizer.calls() != 1 {
		t.Fatalf("expected one listen call, got %d", recognizer.calls())
	}
	if err := recognizer.lastContext().Err(); err != nil {
		t.Fatalf("expected the session context to outlive the Begin context, got %v", err)
	}
}

func TestEndIsIdempotentAndAllowsRestart(t *testing.T) {
	orchestrator := NewOrchestrator(
		WithRecognizer(&stubRecognizer{}),
		WithSynthesizer(&stubSynthesizer{}),
		WithPolicy(echoPolicy{}),
	)
	defer orchestrator.Close()

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orchestrator.End(context.Background())
	orchestrator.End(context.Background())

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("expected a new session after End, got %v", err)
	}
}

func TestDegradedModeSkipsPersistence(t *testing.T) {
	recognizer := &stubRecognizer{}
	synthesizer := &stubSynthesizer{}
	gateway := &fakeGateway{createErr: errors.New("store down")}

	orchestrator := NewOrchestrator(
		WithRecognizer(recognizer),
		WithSynthesizer(synthesizer),
		WithStore(gateway),
		WithPolicy(echoPolicy{}),
		WithRestartCooldown(0),
	)

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("expected the conversation to start despite the store, got %v", err)
	}
	if !orchestrator.Snapshot().Degraded {
		t.Fatal("expected a degraded session")
	}

	synthesizer.finish(0)
	recognizer.lastStream().OnFinal("hallo", 0.9)
	orchestrator.Close()

	if ops := gateway.operations(); len(ops) != 0 {
		t.Fatalf("expected no store writes in degraded mode, got %v", ops)
	}
}

func TestPersistenceIssuedInTranscriptOrder(t *testing.T) {
	recognizer := &stubRecognizer{}
	synthesizer := &stubSynthesizer{}
	gateway := &fakeGateway{}

	orchestrator := NewOrchestrator(
		WithRecognizer(recognizer),
		WithSynthesizer(synthesizer),
		WithStore(gateway),
		WithPolicy(echoPolicy{}),
		WithRestartCooldown(0),
	)

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	synthesizer.finish(0)
	recognizer.lastStream().OnFinal("hallo", 0.9)
	orchestrator.Close()

	want := []string{"create", "append", "append", "append", "close"}
	got := gateway.operations()
	if len(got) != len(want) {
		t.Fatalf("expected operations %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected operations %v, got %v", want, got)
		}
	}

	wantSpeakers := []store.Speaker{store.SpeakerAssistant, store.SpeakerUser, store.SpeakerAssistant}
	for i, speaker := range wantSpeakers {
		if gateway.speakers[i] != speaker {
			t.Fatalf("expected speakers %v, got %v", wantSpeakers, gateway.speakers)
		}
	}
	if gateway.messages[1] != "hallo" || gateway.messages[2] != "re: hallo" {
		t.Errorf("unexpected persisted messages: %v", gateway.messages)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	orchestrator := NewOrchestrator(
		WithRecognizer(&stubRecognizer{}),
		WithSynthesizer(synthesizer),
		WithPolicy(echoPolicy{}),
	)
	defer orchestrator.Close()

	if _, err := orchestrator.Begin(context.Background(), testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := orchestrator.Snapshot()
	snapshot.Transcript[0].Message = "mutated"

	if got := orchestrator.Snapshot().Transcript[0].Message; got != "welkom" {
		t.Fatalf("expected snapshot mutation to be isolated, got %q", got)
	}
}
