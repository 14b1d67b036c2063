// Package memory provides an in-process record store. It backs tests and
// console runs without a configured database, with the same ordering
// guarantees as the Postgres gateway.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitallic/vitallic-core/core/store"
)

type Store struct {
	mu sync.Mutex

	calls       []store.Call
	transcripts map[string][]store.Transcript
	profiles    []store.VoiceProfile

	now func() time.Time
}

var _ store.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{
		transcripts: map[string][]store.Transcript{},
		profiles:    defaultProfiles(),
		now:         time.Now,
	}
}

// defaultProfiles mirrors the seed rows of the Postgres migration so both
// gateways present the same catalogue.
func defaultProfiles() []store.VoiceProfile {
	return []store.VoiceProfile{
		{
			ID:          "f39e06c2-1d1f-4bbd-9f83-0d9e2f1a6b01",
			Name:        "Vitallic Vriendelijk",
			Description: "Casual, friendly persona",
			Tone:        "friendly",
			Language:    "nl-NL",
			Pitch:       1.1,
			Rate:        1.0,
			Volume:      1.0,
			Active:      true,
		},
		{
			ID:          "f39e06c2-1d1f-4bbd-9f83-0d9e2f1a6b02",
			Name:        "Vitallic Formeel",
			Description: "Measured, formal persona",
			Tone:        "formal",
			Language:    "nl-NL",
			Pitch:       0.9,
			Rate:        0.95,
			Volume:      1.0,
			Active:      true,
		},
	}
}

func (s *Store) CreateCall(_ context.Context, sessionID, profileID, flowID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := store.Call{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ProfileID: profileID,
		FlowID:    flowID,
		Status:    store.StatusActive,
		StartedAt: s.now(),
		CreatedAt: s.now(),
	}
	s.calls = append(s.calls, call)
	return call.ID, nil
}

func (s *Store) CloseCall(_ context.Context, callID string, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.calls {
		if s.calls[i].ID == callID {
			endedAt := s.now()
			s.calls[i].Status = store.StatusCompleted
			s.calls[i].DurationSeconds = durationSeconds
			s.calls[i].EndedAt = &endedAt
			return nil
		}
	}
	return fmt.Errorf("call %s not found", callID)
}

func (s *Store) AppendTranscript(_ context.Context, callID string, speaker store.Speaker, message string, timestamp time.Time, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcripts[callID] = append(s.transcripts[callID], store.Transcript{
		ID:         uuid.NewString(),
		CallID:     callID,
		Speaker:    speaker,
		Message:    message,
		Timestamp:  timestamp,
		Confidence: confidence,
		CreatedAt:  s.now(),
	})
	return nil
}

func (s *Store) ListCalls(_ context.Context, limit int) ([]store.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]store.Call, len(s.calls))
	copy(calls, s.calls)
	slices.Reverse(calls)
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, nil
}

func (s *Store) ListTranscripts(_ context.Context, callID string) ([]store.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcripts := make([]store.Transcript, len(s.transcripts[callID]))
	copy(transcripts, s.transcripts[callID])
	return transcripts, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]store.VoiceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := []store.VoiceProfile{}
	for _, profile := range s.profiles {
		if profile.Active {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}
