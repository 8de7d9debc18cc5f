package errors

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// CategoryNetwork represents transport failures talking to a remote site.
	CategoryNetwork ErrorCategory = "network"
	// CategoryFetch represents a page that answered, but not with usable content.
	CategoryFetch    ErrorCategory = "fetch"
	CategoryClassify ErrorCategory = "classify"

	// CategoryNotify represents failures of the primary output channel.
	CategoryNotify ErrorCategory = "notify"
	// CategoryEvents and CategoryHistory are secondary outputs.
	CategoryEvents  ErrorCategory = "events"
	CategoryHistory ErrorCategory = "history"

	CategoryState      ErrorCategory = "state"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy hints whether trying again can help. Notification delivery
// retries transient failures; everything else waits for the next run.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryNextRun    RetryStrategy = "next_run"
	RetryRateLimit  RetryStrategy = "rate_limit"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set stores value under key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = ErrorContext{}
	}
	c[key] = value
	return c
}

// GetString returns key when it holds a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// GetInt returns key when it holds an int, such as an HTTP status.
func (c ErrorContext) GetInt(key string) (int, bool) {
	n, ok := c[key].(int)
	return n, ok
}
