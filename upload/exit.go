package upload

// Exit codes for the upload command.
const (
	ExitCodeCompleted    = 0 // completion event received
	ExitCodeFailed       = 1 // server reported an error event or refused the request
	ExitCodeTransport    = 2 // request failed, stream broke, ended early or was canceled
	ExitCodeInvalidInput = 3 // file or arguments rejected before upload
)

// ExitCode maps a session result and orchestration error to an exit code.
//
//   - err is a *ValidationError: invalid input
//   - any other err, or no result: transport failure
//   - completed outcome: completed
//   - failed by an error event or a refused request: failed
//   - failed otherwise: transport failure
func ExitCode(result *Result, err error) int {
	if err != nil {
		if IsValidationError(err) {
			return ExitCodeInvalidInput
		}
		return ExitCodeTransport
	}
	if result == nil {
		return ExitCodeTransport
	}
	if result.Outcome.IsCompleted() {
		return ExitCodeCompleted
	}
	switch result.Failure {
	case FailureServer, FailureRejected:
		return ExitCodeFailed
	}
	return ExitCodeTransport
}
