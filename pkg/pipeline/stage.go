package pipeline

import (
	"context"
	"time"
)

// Kind is a stage's failure policy.
type Kind int

const (
	// KindHard stages abort the run on any error.
	KindHard Kind = iota
	// KindSoft stages tolerate a remote operation failure. Any other error
	// still aborts the run.
	KindSoft
	// KindDelay stages only wait.
	KindDelay
)

func (k Kind) String() string {
	switch k {
	case KindHard:
		return "hard"
	case KindSoft:
		return "soft"
	case KindDelay:
		return "delay"
	}
	return "unknown"
}

// Outcome is how a stage ended.
type Outcome int

const (
	Succeeded Outcome = iota
	// Tolerated: a soft stage failed the way it is expected to.
	Tolerated
	// Skipped: the stage had nothing to do.
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Tolerated:
		return "tolerated"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Stage is one entry of the install pipeline.
type Stage struct {
	Name string
	Kind Kind
	// Targets are the hosts the stage touches, in order.
	Targets []string
	// Delay is the wait of a KindDelay stage.
	Delay time.Duration
	// Description is a one-line summary for plans and progress output.
	Description string

	// run returns skipped=true when there was nothing to do.
	run func(ctx context.Context) (skipped bool, err error)
}

// Observer is notified around every stage. Calls happen on the goroutine
// driving the run, in stage order.
type Observer interface {
	StageStarted(index int, st Stage)
	StageFinished(index int, st Stage, outcome Outcome, err error)
}
