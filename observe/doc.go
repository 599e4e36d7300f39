// Package observe provides the gateway's observability primitives: a
// redacting JSON logger, OpenTelemetry tracing and metrics for
// authentication and authorization decisions, and HTTP middleware that
// ties them to each request.
//
// Token strings, Authorization header values and signing secrets are never
// written by any component in this package.
package observe
