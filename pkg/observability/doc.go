/*
Package observability provides metrics and tracing for pipeline executions.

Metrics exports Prometheus collectors driven by domain.LifecycleHooks and a
ports.BoundaryHook that counts commits and rollbacks. TracingHook opens an
OpenTelemetry span around every transaction boundary, and FailureEvents annotates
the span found in the execution context with classified failures.
*/
package observability
