package speech

import "fmt"

// ErrorKind is the closed vocabulary of speech engine failures. The kind is
// the stable identifier surfaced to callers; message wording is left to the
// presentation layer.
type ErrorKind string

const (
	KindPermissionDenied        ErrorKind = "permission-denied"
	KindCapabilityMissing       ErrorKind = "capability-missing"
	KindNoSpeechDetected        ErrorKind = "no-speech-detected"
	KindAudioCaptureUnavailable ErrorKind = "audio-capture-unavailable"
	KindNetworkFailure          ErrorKind = "network-failure"
	KindStreamAborted           ErrorKind = "stream-aborted"
	KindServiceBlocked          ErrorKind = "service-blocked"
	KindLanguageUnsupported     ErrorKind = "language-unsupported"
	KindSynthesisFailure        ErrorKind = "synthesis-failure"
)

// Recoverable reports whether the conversation can continue past this kind of
// failure by restarting the affected activity.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindNoSpeechDetected, KindNetworkFailure, KindStreamAborted, KindSynthesisFailure:
		return true
	}
	return false
}

// Error pairs an ErrorKind with engine-level detail.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewError builds an Error for the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
