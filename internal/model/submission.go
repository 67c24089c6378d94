package model

// SubmissionRequest carries everything needed for one proof submission
// attempt. Built per attempt, never persisted.
type SubmissionRequest struct {
	ConfigName   string
	PublicValues []byte
	ProofBytes   []byte
	Sender       string
}
