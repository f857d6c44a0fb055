package errors

import "maps"

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts a non-retryable error of category.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
	}}
}

// WrapError starts an error of category caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { b.err.severity = SeverityFatal; return b }
func (b *ErrorBuilder) Warning() *ErrorBuilder { b.err.severity = SeverityWarning; return b }

// Rerun marks a failure the next publish run repairs.
func (b *ErrorBuilder) Rerun() *ErrorBuilder { b.err.retry = RetryRerun; return b }

// UserAction marks a failure that needs a change from the user first.
func (b *ErrorBuilder) UserAction() *ErrorBuilder { b.err.retry = RetryUserAction; return b }

// Build returns the error. The builder may keep being used afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.context = maps.Clone(b.err.context)
	return &out
}

// ConfigError is a missing or malformed setting.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// ValidationError is malformed input, raised before any remote call.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().UserAction()
}

func AuthError(message string) *ErrorBuilder {
	return NewError(CategoryAuth, message).UserAction()
}

func StorageError(message string) *ErrorBuilder {
	return NewError(CategoryStorage, message).Fatal().Rerun()
}

func CDNError(message string) *ErrorBuilder {
	return NewError(CategoryCDN, message).Fatal().Rerun()
}

// ForgeError is a failed pull request API call. It never aborts a publish
// that already reached the bucket.
func ForgeError(message string) *ErrorBuilder {
	return NewError(CategoryForge, message).Rerun()
}

// BuildError is a site generator failure; its log tail goes to the pull request.
func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal().UserAction()
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
