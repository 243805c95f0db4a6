package types

// OutcomeStatus is the terminal status of an upload session.
type OutcomeStatus string

// Outcome status values.
const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// UnknownErrorMessage is used when a failure carries no message.
const UnknownErrorMessage = "Unknown error"

// UploadOutcome is the terminal result of an upload session.
// Exactly one of Document (completed) or Message (failed) is meaningful.
type UploadOutcome struct {
	Status   OutcomeStatus     `json:"status" yaml:"status"`
	Document *DocumentMetadata `json:"document,omitempty" yaml:"document,omitempty"`
	Message  string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Completed returns a completed outcome for doc.
func Completed(doc DocumentMetadata) *UploadOutcome {
	return &UploadOutcome{Status: OutcomeCompleted, Document: &doc}
}

// Failed returns a failed outcome. An empty message becomes UnknownErrorMessage.
func Failed(message string) *UploadOutcome {
	if message == "" {
		message = UnknownErrorMessage
	}
	return &UploadOutcome{Status: OutcomeFailed, Message: message}
}

// IsCompleted reports whether the outcome is a completion.
func (o *UploadOutcome) IsCompleted() bool {
	return o != nil && o.Status == OutcomeCompleted
}
