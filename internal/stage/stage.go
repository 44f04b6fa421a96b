// Package stage implements the counseling stage progression: the stage
// enum and its transition graph, the per-turn advancement monitor, and
// the out-of-band readiness scorer that gates the final transition.
package stage

import "strings"

// Stage is one of the five ordered counseling stages.
type Stage string

const (
	Setting      Stage = "SETTING"
	Perception   Stage = "PERCEPTION"
	Emotion      Stage = "EMOTION"
	Acceptance   Stage = "ACCEPTANCE"
	Reminiscence Stage = "REMINISCENCE"
)

// All lists the stages in progression order.
var All = []Stage{Setting, Perception, Emotion, Acceptance, Reminiscence}

// transitions is the only legal forward graph. No skipping, no going
// back; Reminiscence is terminal.
var transitions = map[Stage]Stage{
	Setting:    Perception,
	Perception: Emotion,
	Emotion:    Acceptance,
	Acceptance: Reminiscence,
}

// Parse normalizes a stage name. ok is false for anything outside the
// enum.
func Parse(s string) (Stage, bool) {
	candidate := Stage(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range All {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// IsValid reports whether s is a member of the enum.
func (s Stage) IsValid() bool {
	_, ok := Parse(string(s))
	return ok
}

// String returns the canonical stage name.
func (s Stage) String() string {
	return string(s)
}

// Next returns the stage following s. Terminal and unknown stages are
// returned unchanged; advancing past the end is a no-op, not an error.
func Next(s Stage) Stage {
	if next, ok := transitions[s]; ok {
		return next
	}
	return s
}
