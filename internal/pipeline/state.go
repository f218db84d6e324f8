package pipeline

import (
	"fmt"

	"go.uber.org/zap"
)

// State is a step of a single run.
type State string

const (
	StatePending     State = "pending"
	StateExtracting  State = "extracting"
	StateStructuring State = "structuring"
	StateEvaluating  State = "evaluating"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// StageError wraps the error that moved a run into the failed state.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type tracker struct {
	state  State
	logger *zap.Logger
}

func newTracker(logger *zap.Logger) *tracker {
	return &tracker{state: StatePending, logger: logger}
}

func (t *tracker) to(next State) {
	t.logger.Debug("pipeline state",
		zap.String("from", string(t.state)),
		zap.String("to", string(next)),
	)
	t.state = next
}

// fail moves the run to the failed state and returns err attributed to the current stage.
func (t *tracker) fail(err error) error {
	failed := &StageError{State: t.state, Err: err}
	t.to(StateFailed)
	return failed
}
