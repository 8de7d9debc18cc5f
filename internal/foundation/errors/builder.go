package errors

import "maps"

// ErrorBuilder assembles a ClassifiedError fluently.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts a builder with error severity and no retry hint.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  ErrorContext{},
	}}
}

// WrapError starts a builder around cause.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = cause
	return b
}

func (b *ErrorBuilder) WithSeverity(s ErrorSeverity) *ErrorBuilder {
	b.err.severity = s
	return b
}

func (b *ErrorBuilder) WithRetry(r RetryStrategy) *ErrorBuilder {
	b.err.retry = r
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }

// NextRun marks the failure as expected to clear by the next attempt.
func (b *ErrorBuilder) NextRun() *ErrorBuilder { return b.WithRetry(RetryNextRun) }

// RateLimit marks the failure as a remote rate limit.
func (b *ErrorBuilder) RateLimit() *ErrorBuilder { return b.WithRetry(RetryRateLimit) }

// UserAction marks the failure as requiring operator intervention.
func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build returns the error. The builder may be reused afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.context = make(ErrorContext, len(b.err.context))
	maps.Copy(out.context, b.err.context)
	return &out
}

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().UserAction()
}

// NetworkError is a transport failure talking to a remote site.
func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message).NextRun()
}

// FetchError is a page that answered without usable content.
func FetchError(message string) *ErrorBuilder {
	return NewError(CategoryFetch, message).NextRun()
}

func NotifyError(message string) *ErrorBuilder {
	return NewError(CategoryNotify, message).Fatal()
}

func StateError(message string) *ErrorBuilder {
	return NewError(CategoryState, message).Fatal()
}

func DaemonError(message string) *ErrorBuilder {
	return NewError(CategoryDaemon, message)
}
