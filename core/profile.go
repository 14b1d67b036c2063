package session

import (
	"time"

	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

// Profile is the voice/persona configuration a session is started with. It is
// immutable for the session's lifetime.
type Profile struct {
	ID       string
	Name     string
	Tone     string
	Language string
	Pitch    float64
	Rate     float64
	Volume   float64
}

// Prosody returns the synthesis parameters declared by the profile.
func (p Profile) Prosody() speech.Prosody {
	return speech.Prosody{Pitch: p.Pitch, Rate: p.Rate, Volume: p.Volume}
}

// ProfileFromRecord adapts a stored voice profile into a session profile.
func ProfileFromRecord(record store.VoiceProfile) Profile {
	return Profile{
		ID:       record.ID,
		Name:     record.Name,
		Tone:     record.Tone,
		Language: record.Language,
		Pitch:    record.Pitch,
		Rate:     record.Rate,
		Volume:   record.Volume,
	}
}

// Turn is one unit of dialogue. Turns are immutable once created and appended
// to the session transcript in strict chronological order.
type Turn struct {
	ID         string
	Speaker    store.Speaker
	Message    string
	Timestamp  time.Time
	Confidence float64
}

// liveSession is the mutable state of the one live conversation. All access
// happens under the orchestrator's mutex.
type liveSession struct {
	id        string
	profile   Profile
	startedAt time.Time

	// callID is assigned once the record store acknowledges call creation.
	// Empty means the session runs in degraded mode: the conversation
	// proceeds but no persistence calls are issued for it.
	callID string

	pendingUtterance  string
	pendingConfidence float64

	transcript []Turn
}
