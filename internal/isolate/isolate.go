// Package isolate runs bundle jobs inside a failure domain separate from
// the caller. The caller always blocks until the unit finishes; a context
// deadline, when the caller sets one, bounds the wait.
//
// Two executors are provided:
//
//   - InProcess runs the job on its own goroutine and converts a panic in
//     the minifier into an error instead of crashing the process.
//   - Process re-executes a worker binary (normally this program's own
//     hidden "worker" command) and hands it the job over stdin, which also
//     contains runaway memory growth inside a third-party minifier.
package isolate

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/conneroisu/assetpipe/internal/bundle"
)

const (
	ModeGoroutine = "goroutine"
	ModeProcess   = "process"
)

// Executor runs one bundle job to completion.
type Executor interface {
	Execute(ctx context.Context, job bundle.Job, minify bundle.MinifyFunc) (bundle.Result, error)
}

// PanicError is returned when the isolated unit panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("isolated build panicked: %v", e.Value)
}

// InProcess runs jobs on a dedicated goroutine with panic containment.
type InProcess struct {
	// Cache memoizes digests of existing cache files; may be nil.
	Cache *bundle.DigestCache
}

// NewInProcess creates an in-process executor.
func NewInProcess(cache *bundle.DigestCache) *InProcess {
	return &InProcess{Cache: cache}
}

type outcome struct {
	result bundle.Result
	err    error
}

// Execute implements Executor. If ctx is done before the job finishes the
// goroutine is abandoned and ctx.Err() is returned.
func (e *InProcess) Execute(ctx context.Context, job bundle.Job, minify bundle.MinifyFunc) (bundle.Result, error) {
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		result, err := bundle.Write(job, minify, e.Cache)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return bundle.Result{}, fmt.Errorf("isolated build of %s abandoned: %w", job.Target, ctx.Err())
	}
}

// New returns the executor for a configured isolation mode.
func New(mode string, cache *bundle.DigestCache, worker *Process) (Executor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeGoroutine:
		return NewInProcess(cache), nil
	case ModeProcess:
		if worker == nil {
			return nil, fmt.Errorf("process isolation requires a worker command")
		}
		return worker, nil
	default:
		return nil, fmt.Errorf("unknown isolation mode %q (want %q or %q)", mode, ModeGoroutine, ModeProcess)
	}
}
