// Package store defines the record store gateway: the durable, append-only
// view of calls and their transcripts. Implementations live in subpackages;
// every operation is independently failable and must never be assumed to
// succeed by conversational code.
package store

import (
	"context"
	"time"
)

// Status is the lifecycle state of a call record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Speaker identifies which side of the conversation produced a transcript row.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Call is the durable representation of one session's lifecycle.
type Call struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	ProfileID       string     `json:"profile_id,omitempty"`
	FlowID          string     `json:"flow_id"`
	Status          Status     `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Transcript is one recorded turn of a call. Rows are immutable once written.
type Transcript struct {
	ID         string    `json:"id"`
	CallID     string    `json:"call_id"`
	Speaker    Speaker   `json:"speaker"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoiceProfile is the read-only persona configuration selectable before a
// session begins.
type VoiceProfile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Tone        string  `json:"tone"`
	Language    string  `json:"language"`
	Pitch       float64 `json:"pitch"`
	Rate        float64 `json:"rate"`
	Volume      float64 `json:"volume"`
	Active      bool    `json:"active"`
}

// Gateway is the record store contract. Append operations must preserve
// arrival order per call; each Transcript carries its own timestamp so a
// store ordering by timestamp instead remains equivalent.
type Gateway interface {
	// CreateCall opens a call record with status active and returns its id.
	CreateCall(ctx context.Context, sessionID, profileID, flowID string) (string, error)
	// CloseCall marks a call completed with the given duration.
	CloseCall(ctx context.Context, callID string, durationSeconds int) error
	// AppendTranscript appends one turn to a call's transcript.
	AppendTranscript(ctx context.Context, callID string, speaker Speaker, message string, timestamp time.Time, confidence float64) error
	// ListCalls returns up to limit calls, newest first.
	ListCalls(ctx context.Context, limit int) ([]Call, error)
	// ListTranscripts returns a call's transcript in chronological order.
	ListTranscripts(ctx context.Context, callID string) ([]Transcript, error)
	// ListProfiles returns the active voice profiles.
	ListProfiles(ctx context.Context) ([]VoiceProfile, error)
}
