package cse

import (
	"fmt"

	"github.com/glee-cse/glee"
)

// RunStats counts the outcomes of one exploration.
type RunStats struct {
	Steps    int // instructions executed
	Normal   int // paths that returned
	Error    int // paths that failed or exited
	Early    int // paths dropped without a conclusive outcome
	Composed int // calls answered from a callee summary
	Halted   bool
}

// Add accumulates other into s.
func (s *RunStats) Add(other RunStats) {
	s.Steps += other.Steps
	s.Normal += other.Normal
	s.Error += other.Error
	s.Early += other.Early
	s.Composed += other.Composed
}

// String returns a one-line description of the stats.
func (s RunStats) String() string {
	return fmt.Sprintf("steps=%d normal=%d error=%d early=%d composed=%d halted=%v",
		s.Steps, s.Normal, s.Error, s.Early, s.Composed, s.Halted)
}

// terminate classifies a terminated state into the summary. Every state
// ends in exactly one outcome; inconclusive ones contribute nothing.
func (e *Executor) terminate(state *glee.ExecutionState) {
	switch state.Status() {
	case glee.ExecutionStatusEarly:
		e.stats.Early++
		e.logger.Debug().Int("state", state.ID()).Str("reason", state.Reason()).Msg("path dropped")

	case glee.ExecutionStatusFinished:
		e.stats.Normal++
		e.sum.AddNormalPath(e.policy.normalPath(e, state))

	case glee.ExecutionStatusExited, glee.ExecutionStatusFailed:
		e.stats.Error++
		e.sum.AddErrorPath(e.policy.errorPath(e, state))
		e.logger.Debug().Int("state", state.ID()).
			Stringer("error", state.ErrorReason()).
			Str("reason", state.Reason()).
			Msg("error path")

		if e.haltsOn(state.ErrorReason()) {
			e.stats.Halted = true
			e.halt()
		}

	default:
		panic(fmt.Sprintf("cse: terminate of live state: status=%s", state.Status()))
	}
}

func (e *Executor) haltsOn(reason glee.ErrorReason) bool {
	for _, r := range e.haltOn {
		if r == reason {
			return true
		}
	}
	return false
}
