package board

import "taskwise/internal/models/task"

type State int

const (
	StatePending State = iota
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the state of one optimistic operation: Pending carries the
// local guess, Confirmed the server-confirmed tasks, Failed the snapshot
// the board reverted to together with the cause.
type Outcome struct {
	Op     string
	State  State
	Tasks  []*task.Task
	Writes int
	Err    error
}

func Pending(op string, localGuess []*task.Task, writes int) Outcome {
	return Outcome{Op: op, State: StatePending, Tasks: localGuess, Writes: writes}
}

func Confirmed(op string, serverValue []*task.Task, writes int) Outcome {
	return Outcome{Op: op, State: StateConfirmed, Tasks: serverValue, Writes: writes}
}

func Failed(op string, revertTo []*task.Task, err error) Outcome {
	return Outcome{Op: op, State: StateFailed, Tasks: revertTo, Err: err}
}
