// Package errors provides the classified error primitives used across restockwatch.
//
// A ClassifiedError carries a category (config, fetch, notify, state, ...), a
// severity and a retry hint alongside the usual message and cause. The CLI
// adapter turns the category into a process exit code so a scheduler can tell a
// broken notification channel apart from a bad configuration file.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFetch, "fetch failed").
//		WithContext("target", url).
//		WithContext("status", 503).
//		Build()
package errors
