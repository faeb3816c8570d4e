package pubsub

import "time"

// Change announces a committed batch.
type Change struct {
	TaskIDs []string
	At      time.Time
}

type Kind string

const KindPermissionDenied Kind = "permission-denied"
const KindOperationFailed Kind = "operation-failed"

// ErrorEvent is a structured failure report for centralized display.
type ErrorEvent struct {
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Payload   any       `json:"payload,omitempty"`
	Err       string    `json:"error"`
	ActorID   string    `json:"actorId,omitempty"`
	At        time.Time `json:"at"`
}
