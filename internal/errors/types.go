package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeBuild          ErrorType = "build"
	ErrorTypeNotImplemented ErrorType = "not_implemented"
	ErrorTypeIO             ErrorType = "io"
)

// Common error codes.
const (
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeDirNotFound        = "ERR_DIR_NOT_FOUND"
	ErrCodeNoSearchPaths      = "ERR_NO_SEARCH_PATHS"
	ErrCodeNoFiles            = "ERR_NO_FILES"
	ErrCodeUnknownType        = "ERR_UNKNOWN_TYPE"
	ErrCodeDuplicateType      = "ERR_DUPLICATE_TYPE"
	ErrCodeNoExtension        = "ERR_NO_EXTENSION"
	ErrCodeUnknownAssetGroup  = "ERR_UNKNOWN_ASSET_GROUP"
	ErrCodeDuplicateGroup     = "ERR_DUPLICATE_ASSET_GROUP"
	ErrCodeNoGroups           = "ERR_NO_GROUPS"
	ErrCodeBuildFailed        = "ERR_BUILD_FAILED"
	ErrCodeCacheFileMissing   = "ERR_CACHE_FILE_MISSING"
	ErrCodeWorkerCrashed      = "ERR_WORKER_CRASHED"
	ErrCodeMinifyMissing      = "ERR_MINIFY_NOT_IMPLEMENTED"
	ErrCodeTagMissing         = "ERR_TAG_NOT_IMPLEMENTED"
	ErrCodeManifestInvalid    = "ERR_MANIFEST_INVALID"
	ErrCodeIsolationInvalid   = "ERR_ISOLATION_INVALID"
	ErrCodeInitializerFailure = "ERR_INITIALIZER_FAILED"
	ErrCodeReadCacheDir       = "ERR_READ_CACHE_DIR"
	ErrCodeRemoveCacheFile    = "ERR_REMOVE_CACHE_FILE"
)

// Sentinels for errors.Is matching on the error category alone.
var (
	ErrConfig         = &AssetError{Type: ErrorTypeConfig}
	ErrBuild          = &AssetError{Type: ErrorTypeBuild}
	ErrNotImplemented = &AssetError{Type: ErrorTypeNotImplemented}
)

// AssetError is a structured error type with context.
type AssetError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
	Path    string
}

// Error implements the error interface.
func (e *AssetError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AssetError) Unwrap() error {
	return e.Cause
}

// Is matches on Type, and on Code when the target carries one.
func (e *AssetError) Is(target error) bool {
	var t *AssetError
	if !errors.As(target, &t) {
		return false
	}
	if e.Type != t.Type {
		return false
	}

	return t.Code == "" || e.Code == t.Code
}

// WithContext adds context information to the error.
func (e *AssetError) WithContext(key string, value interface{}) *AssetError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the file or directory the error is about.
func (e *AssetError) WithPath(path string) *AssetError {
	e.Path = path

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *AssetError {
	return &AssetError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *AssetError {
	return &AssetError{
		Type:    ErrorTypeBuild,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNotImplementedError reports a kind that is missing a required capability.
func NewNotImplementedError(code, message string) *AssetError {
	return &AssetError{
		Type:    ErrorTypeNotImplemented,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *AssetError {
	return &AssetError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	return errors.Is(err, ErrBuild)
}

// IsNotImplemented checks if an error reports a missing kind capability.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
