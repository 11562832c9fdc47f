// Package errors defines the error taxonomy shared by the asset pipeline:
// configuration errors raised eagerly at call boundaries, build errors
// raised when an isolated build unit leaves no output behind, and
// not-implemented errors for asset kinds missing a capability.
package errors

import (
	"fmt"
	"strings"
	"sync"
)

// ErrorCollector collects per-group failures during a build sweep.
type ErrorCollector struct {
	errors []error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// AddError adds an error to the collector, ignoring nil.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// GetAllErrors returns a copy of all collected errors in insertion order.
func (ec *ErrorCollector) GetAllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]error, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// Err returns nil when nothing was collected, otherwise an error that
// unwraps to every collected error and reports the first one first.
func (ec *ErrorCollector) Err() error {
	errs := ec.GetAllErrors()
	if len(errs) == 0 {
		return nil
	}
	return &MultiError{Errors: errs}
}

// MultiError aggregates independent failures.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// First returns the first collected error.
func (m *MultiError) First() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m.Errors[0]
}
