/*
Package observability wires engine lifecycle hooks to Prometheus metrics and
sets up OpenTelemetry tracing.

Metrics live in a private registry so that several services (or tests) can run
in the same process without colliding on the global registerer.
*/
package observability
