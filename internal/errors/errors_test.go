package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetErrorError(t *testing.T) {
	err := NewConfigError(ErrCodeDirNotFound, "cache directory does not exist").WithPath("/tmp/missing")

	assert.Equal(t, "[ERR_DIR_NOT_FOUND] /tmp/missing cache directory does not exist", err.Error())
}

func TestAssetErrorErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewBuildError(ErrCodeBuildFailed, "write failed", cause)

	assert.Contains(t, err.Error(), "write failed: disk full")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAssetErrorIs(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"config matches category", NewConfigError(ErrCodeUnknownType, "x"), ErrConfig, true},
		{"build matches category", NewBuildError(ErrCodeBuildFailed, "x", nil), ErrBuild, true},
		{"config is not build", NewConfigError(ErrCodeUnknownType, "x"), ErrBuild, false},
		{"code must match when set", NewConfigError(ErrCodeUnknownType, "x"), NewConfigError(ErrCodeDuplicateType, ""), false},
		{"same code matches", NewConfigError(ErrCodeUnknownType, "x"), NewConfigError(ErrCodeUnknownType, ""), true},
		{"wrapped cause matches", fmt.Errorf("outer: %w", NewNotImplementedError(ErrCodeMinifyMissing, "x")), ErrNotImplemented, true},
		{"plain error never matches", fmt.Errorf("plain"), ErrConfig, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.Is(tc.err, tc.target))
		})
	}
}

func TestCategoryHelpers(t *testing.T) {
	assert.True(t, IsConfigError(NewConfigError(ErrCodeConfigInvalid, "bad")))
	assert.True(t, IsBuildError(NewBuildError(ErrCodeCacheFileMissing, "missing", nil)))
	assert.True(t, IsNotImplemented(NewNotImplementedError(ErrCodeTagMissing, "no tag")))
	assert.False(t, IsBuildError(nil))
}

func TestWithContext(t *testing.T) {
	err := NewConfigError(ErrCodeUnknownType, "unknown type").
		WithContext("type", "coffee").
		WithContext("known", 2)

	require.NotNil(t, err.Context)
	assert.Equal(t, "coffee", err.Context["type"])
	assert.Equal(t, 2, err.Context["known"])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeBuild, ErrCodeBuildFailed, "x"))

	inner := NewIOError("ERR_READ", "read failed", fmt.Errorf("eof")).WithPath("/js/a.js")
	wrapped := WrapBuild(inner, ErrCodeBuildFailed, "build failed", "")

	assert.Equal(t, ErrorTypeBuild, wrapped.Type)
	assert.Equal(t, "/js/a.js", wrapped.Path)
	assert.True(t, errors.Is(wrapped, ErrBuild))

	var ae *AssetError
	require.True(t, errors.As(wrapped.Cause, &ae))
	assert.Equal(t, ErrorTypeIO, ae.Type)

	plain := WrapConfig(fmt.Errorf("boom"), ErrCodeConfigInvalid, "bad config")
	assert.True(t, IsConfigError(plain))
}

func TestErrorCollector(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Err())

	collector.AddError(nil)
	assert.False(t, collector.HasErrors())

	first := NewBuildError(ErrCodeCacheFileMissing, "first", nil)
	second := NewBuildError(ErrCodeWorkerCrashed, "second", nil)
	collector.AddError(first)
	collector.AddError(second)

	require.True(t, collector.HasErrors())
	assert.Len(t, collector.GetAllErrors(), 2)

	err := collector.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.True(t, errors.Is(err, ErrBuild))

	var multi *MultiError
	require.True(t, errors.As(err, &multi))
	assert.Equal(t, first, multi.First())

	collector.Clear()
	assert.False(t, collector.HasErrors())
}

func TestMultiErrorSingle(t *testing.T) {
	err := &MultiError{Errors: []error{fmt.Errorf("only")}}
	assert.Equal(t, "only", err.Error())
	assert.Nil(t, (&MultiError{}).First())
}
