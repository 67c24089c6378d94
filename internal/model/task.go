package model

import "github.com/ethereum/go-ethereum/common/hexutil"

// TaskStatus mirrors the statuses reported by the task service.
type TaskStatus string

const (
	TaskNotFound  TaskStatus = "NotFound"
	TaskPending   TaskStatus = "Pending"
	TaskRunning   TaskStatus = "Running"
	TaskCompleted TaskStatus = "Completed"
	TaskFailed    TaskStatus = "Failed"
)

// Task is a proof-generation task tracked by the external task service.
// ProofBytes and PublicValues are only populated once the task completes.
type Task struct {
	ID           string        `json:"id"`
	QueryID      string        `json:"query_id"`
	Ts           uint64        `json:"ts"`
	Status       TaskStatus    `json:"status"`
	Comment      string        `json:"comment,omitempty"`
	ProofBytes   hexutil.Bytes `json:"proof_bytes,omitempty"`
	PublicValues hexutil.Bytes `json:"public_values,omitempty"`
}

// Terminal reports whether the task will make no further progress.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}
