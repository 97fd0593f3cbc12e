// Package script runs Lua scripts as pipeline steps.
//
// Scripts read the globals params, result and model, and return the step output.
// They can fail with a typed failure by calling fail_status(code, message) or
// fail_validation(message [, field]); any other Lua error becomes an *EvalError
// carrying the line and source snippet where it was raised.
//
// Comment lines declare the params a script expects:
//
//	-- @param query string
//	-- @param limit int?
//
// Params that do not match are rejected with validation failures before the script runs.
package script
