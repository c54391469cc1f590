package domain

import "errors"

var (
	// ErrAuth is returned when the recruitment API credential is missing or rejected.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork wraps recoverable transport or service failures.
	ErrNetwork = errors.New("network error")
	// ErrValidation is returned before any network call when input is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrApplicationNotFound indicates the dashboard has no such application.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrNotAvailable indicates the assessment window is not open for the application.
	ErrNotAvailable = errors.New("assessment not available")
	// ErrWindowExpired indicates the assessment window already closed.
	ErrWindowExpired = errors.New("assessment window expired")
	// ErrSessionNotOpen is returned for session commands without an open session view.
	ErrSessionNotOpen = errors.New("session not open")
	// ErrSessionBusy is returned when another session view is already open.
	ErrSessionBusy = errors.New("another session is open")
	// ErrSessionFrozen is returned when answers can no longer change.
	ErrSessionFrozen = errors.New("session no longer accepts answers")
	// ErrSubmissionInFlight is returned when a submission for the application is already running or done.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrKeyNotFound is returned by key-value stores on a miss.
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuizNotFound indicates the quiz set could not be loaded.
	ErrQuizNotFound = errors.New("quiz set not found")
	// ErrQuestionNotFound indicates an answer referenced an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an answer referenced an option outside the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrEngineStopped is returned once the session engine has been torn down.
	ErrEngineStopped = errors.New("session engine stopped")
)

// ErrorKind maps an error onto the taxonomy shown to candidates.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrQuestionNotFound), errors.Is(err, ErrOptionNotFound):
		return "validation"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}
