package domain

import "fmt"

// Stage is a step in the linear production pipeline of a commissioned piece.
// Stages only advance; StageFinished is terminal.
type Stage int

const (
	StageNew Stage = iota
	StageModeling
	StageFiring
	StageColoring
	StagePrefinal
	StageFinished
)

var stageNames = [...]string{
	StageNew:      "new",
	StageModeling: "modeling",
	StageFiring:   "firing",
	StageColoring: "coloring",
	StagePrefinal: "prefinal",
	StageFinished: "finished",
}

// Valid reports whether the stage is within the enum range
func (s Stage) Valid() bool {
	return s >= StageNew && s <= StageFinished
}

// Terminal reports whether the stage has no successor
func (s Stage) Terminal() bool {
	return s == StageFinished
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Next returns the successor stage, or ErrTerminalStage on the finished stage
func (s Stage) Next() (Stage, error) {
	if !s.Valid() {
		return 0, ErrInvalidStage
	}
	if s.Terminal() {
		return 0, ErrTerminalStage
	}
	return s + 1, nil
}

// ParseStage converts a stage name back to its enum value
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStage, name)
}
