package session

import "errors"

var (
	// ErrSessionActive is returned by Begin while another session is live; at
	// most one session owns the adapters per orchestrator instance.
	ErrSessionActive = errors.New("a session is already active")
	// ErrSessionEnded is returned by Begin when the session was ended before
	// startup completed.
	ErrSessionEnded = errors.New("session ended during startup")
)
