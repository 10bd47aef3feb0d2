package render

import (
	"errors"
	"fmt"
)

// Stage is a step of a render.
type Stage int

const (
	LoadSource Stage = iota
	LoadLogo
	Measure
	ResolveFit
	Style
	Draw
	Encode
	Done
	Failed
)

var stageNames = [...]string{"load-source", "load-logo", "measure", "resolve-fit", "style", "draw", "encode", "done", "failed"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

var (
	// ErrSourceDecode means the source photo could not be decoded.
	ErrSourceDecode = errors.New("source image undecodable")

	// ErrTimeout means the render did not finish within its deadline.
	ErrTimeout = errors.New("render timed out")
)

// StageError records which stage a render failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
