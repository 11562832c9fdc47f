package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating an AssetError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *AssetError {
	if err == nil {
		return nil
	}

	// Keep the context and path of an existing AssetError
	var ae *AssetError
	if errors.As(err, &ae) {
		return &AssetError{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   ae,
			Context: ae.Context,
			Path:    ae.Path,
		}
	}

	return &AssetError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapBuild wraps an error as a build error for the given output path
func WrapBuild(err error, code, message, path string) *AssetError {
	ae := Wrap(err, ErrorTypeBuild, code, message)
	if ae != nil && path != "" {
		ae.Path = path
	}
	return ae
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *AssetError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *AssetError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
