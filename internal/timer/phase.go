package timer

import "time"

// PhaseKind tags the variant held by a Phase.
type PhaseKind int

const (
	PhaseRunning PhaseKind = iota
	PhaseOnBreak
	PhasePaused
)

var phaseKindNames = map[PhaseKind]string{
	PhaseRunning: "WORK",
	PhaseOnBreak: "BREAK",
	PhasePaused:  "PAUSED",
}

func (k PhaseKind) String() string {
	if name, ok := phaseKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Phase is Running, OnBreak(target) or Paused(prior). Build values with
// Running, OnBreak and Paused rather than by hand.
type Phase struct {
	Kind PhaseKind

	// Target is the break length, set only for PhaseOnBreak.
	Target time.Duration

	// prior is the phase a Paused phase resumes into. It is never itself
	// a paused phase.
	prior *Phase
}

// Running is the work phase.
func Running() Phase {
	return Phase{Kind: PhaseRunning}
}

// OnBreak is a break lasting target.
func OnBreak(target time.Duration) Phase {
	return Phase{Kind: PhaseOnBreak, Target: target}
}

// Paused freezes p. Pausing an already paused phase returns it unchanged.
func Paused(p Phase) Phase {
	if p.Kind == PhasePaused {
		return p
	}
	prior := p
	return Phase{Kind: PhasePaused, prior: &prior}
}

// Prior returns the phase a paused phase resumes into. For other phases it
// returns the phase itself.
func (p Phase) Prior() Phase {
	if p.Kind == PhasePaused && p.prior != nil {
		return *p.prior
	}
	if p.Kind == PhasePaused {
		return Running()
	}
	return p
}

// target is the length of the phase, or of the phase it resumes into.
func (p Phase) target(cfg Config) time.Duration {
	switch p.Kind {
	case PhaseOnBreak:
		return p.Target
	case PhasePaused:
		return p.Prior().target(cfg)
	}
	return cfg.Working
}
