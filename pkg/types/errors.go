package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage of a work unit.
var (
	ErrInputUnavailable   = errors.New("input unavailable")
	ErrDecode             = errors.New("decode failure")
	ErrDegenerateTemplate = errors.New("degenerate template")
	ErrResize             = errors.New("resize failure")
	ErrWrite              = errors.New("write failure")
	ErrCancelled          = errors.New("cancelled")
	ErrDuplicateOutput    = errors.New("duplicate output name")
)

// Stage names the step of a work unit in which a failure happened.
type Stage string

const (
	StageLoadTemplate Stage = "load-template"
	StageAnalyze      Stage = "analyze"
	StageLoadSubject  Stage = "load-subject"
	StagePlace        Stage = "place"
	StageWrite        Stage = "write"
	StageCancelled    Stage = "cancelled"
)

// UnitError reports a failed work unit with enough context to diagnose it.
type UnitError struct {
	Template string
	Subject  string
	Stage    Stage
	Err      error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("template %s, subject %s: %s: %v", e.Template, e.Subject, e.Stage, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}
