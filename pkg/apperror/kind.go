package apperror

type Kind string

var (
	// --- Registry ---
	InvalidURL    Kind = "invalid_url"
	DuplicateURL  Kind = "duplicate_url"
	QuotaExceeded Kind = "quota_exceeded"
	NotFound      Kind = "not_found"

	// --- Gateway ---
	InvalidInput Kind = "invalid_input"
	Unauthorised Kind = "unauthorised"

	// --- Infrastructure ---
	RequestTimeout Kind = "request_timeout"
	Internal       Kind = "internal"
	Dependency     Kind = "dependency_failure"
	DatabaseErr    Kind = "database_error"
	SchedulerFault Kind = "scheduler_fault"
)
