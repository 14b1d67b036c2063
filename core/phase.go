package session

// Phase is the orchestrator's position in the listen/speak lifecycle. At any
// instant exactly one of {no adapter activity, recognition active, synthesis
// active} holds; the phase is the authoritative record of which.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhaseListening Phase = "listening"
	PhaseSpeaking  Phase = "speaking"
	PhaseEnding    Phase = "ending"
)

func (p Phase) String() string { return string(p) }

// Live reports whether a session currently owns the adapters.
func (p Phase) Live() bool { return p != PhaseIdle }
