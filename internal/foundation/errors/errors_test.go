package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_Constructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"config", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"validation", ValidationError("x"), CategoryValidation, SeverityFatal, RetryUserAction},
		{"auth", AuthError("x"), CategoryAuth, SeverityError, RetryUserAction},
		{"storage", StorageError("x"), CategoryStorage, SeverityFatal, RetryRerun},
		{"cdn", CDNError("x"), CategoryCDN, SeverityFatal, RetryRerun},
		{"forge", ForgeError("x"), CategoryForge, SeverityError, RetryRerun},
		{"build", BuildError("x"), CategoryBuild, SeverityFatal, RetryUserAction},
		{"filesystem", FileSystemError("x"), CategoryFileSystem, SeverityFatal, RetryNever},
		{"internal", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			require.Equal(t, tt.category, err.Category())
			require.Equal(t, tt.severity, err.Severity())
			require.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestWrapError_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(cause, CategoryStorage, "list draft objects").
		Warning().
		WithContext("prefix", "langflow-drafts/main/").
		Build()

	require.ErrorIs(t, err, cause)
	require.Equal(t, SeverityWarning, err.Severity())
	require.Equal(t, "[storage:warning] list draft objects: connection reset", err.Error())
	require.Equal(t, "langflow-drafts/main/", err.Context()["prefix"])
}

func TestWithContext_LeavesSentinelUntouched(t *testing.T) {
	sentinel := ValidationError("pull request comes from a fork").Build()
	decorated := sentinel.WithContext("head", "someone/docs")

	require.Empty(t, sentinel.Context())
	require.Equal(t, "someone/docs", decorated.Context()["head"])
	require.ErrorIs(t, fmt.Errorf("guard: %w", decorated), sentinel)
}

func TestBuild_SnapshotsContext(t *testing.T) {
	b := StorageError("upload failed").WithContext("key", "a")
	first := b.Build()
	second := b.WithContext("key", "b").Build()

	require.Equal(t, "a", first.Context()["key"])
	require.Equal(t, "b", second.Context()["key"])
}

func TestHasCategory_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("resolve: %w", ValidationError("bad ref").Build())
	require.True(t, HasCategory(err, CategoryValidation))
	require.False(t, HasCategory(err, CategoryConfig))
	require.False(t, HasCategory(errors.New("plain"), CategoryInternal))
}

func TestLogAttrs_SortedContext(t *testing.T) {
	err := CDNError("invalidation failed").
		WithContext("distribution", "E123").
		WithContext("batch", "abc").
		Build()

	attrs := err.LogAttrs()
	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	require.Equal(t, []string{"category", "retry", "batch", "distribution"}, keys)
	require.Equal(t, slog.LevelError, err.Severity().Level())
	require.Equal(t, slog.LevelWarn, SeverityWarning.Level())
}
