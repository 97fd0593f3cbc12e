package domain

// Keys written by pipeline executions. They live in DefaultRegistry.
var (
	// IsError is false after a successful execution and true after a recorded failure.
	IsError = NewKey[bool]("isError")

	// ErrorMessage holds the failure message of a recorded failure.
	ErrorMessage = NewKey[string]("errorMessage")

	// ErrorDiagnostic holds the full trace or the failure type name, see SetFullTrace.
	ErrorDiagnostic = NewKey[string]("errorDiagnostic")

	// FailureValue holds the raw failure of a recorded failure.
	FailureValue = NewKey[error]("failure")
)
