package models

// ErrorKind classifies a backend or executor failure so callers can
// decide on cooldowns, retries, and RL scoring without string-matching
// error messages.
type ErrorKind string

const (
	// ErrKindRateLimited is an HTTP 429 or ecosystem-equivalent signal.
	ErrKindRateLimited ErrorKind = "rate_limited"
	// ErrKindTransport is a non-429 4xx/5xx, connection refused, or timeout.
	ErrKindTransport ErrorKind = "transport"
	// ErrKindBadOutput means the model responded but nothing usable parsed.
	ErrKindBadOutput ErrorKind = "bad_output"
	// ErrKindExecFailure is a single command's non-zero exit.
	ErrKindExecFailure ErrorKind = "exec_failure"
	// ErrKindFileWriteFailure is a filesystem-level write failure.
	ErrKindFileWriteFailure ErrorKind = "file_write_failure"
	// ErrKindOutOfScope is a bridge-type provider invoked from the core.
	ErrKindOutOfScope ErrorKind = "out_of_scope"
)

// KindedError pairs an error kind with the underlying error, so the
// pipeline can branch on Kind while %w-wrapping still reaches the cause.
type KindedError struct {
	Kind       ErrorKind
	Err        error
	RetryAfter int64 // seconds; zero means unspecified, only meaningful for ErrKindRateLimited
}

func (e *KindedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *KindedError) Unwrap() error {
	return e.Err
}

// FailureScore is the RL score assigned to a task that failed outright,
// per the fixed transport-vs-other split.
func FailureScore(kind ErrorKind) int {
	switch kind {
	case ErrKindRateLimited, ErrKindTransport:
		return 25
	default:
		return 0
	}
}
