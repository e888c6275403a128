// Package errors provides the structured error type shared by every dagflow
// package. Each failure carries a machine-readable ErrorCode so callers can
// tell a construction-time violation (bad name, dangling reference, cycle)
// from an invocation-time one (missing parameter, output shape, serialization).
package errors
