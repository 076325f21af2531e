// Package errors provides the classified error primitives used across incscript.
//
// Every failure the compiler can surface is a ClassifiedError carrying a
// category and a severity. The category decides the process exit code through
// CLIErrorAdapter; the severity decides whether the run, a directory subtree,
// or a single file is abandoned.
//
// Key features:
//   - ErrorCategory: broad classification (config, not_found, content, script, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit code and message rendering for the command line
//
// Example usage:
//
//	err := errors.ContentError("content cycle detected").
//		WithContext("reference", ref).
//		WithCause(ErrContentCycle).
//		Build()
package errors
