package isolate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/conneroisu/assetpipe/internal/bundle"
	"github.com/conneroisu/assetpipe/internal/errors"
)

// WorkerCommand is the name of the hidden CLI command that serves jobs.
const WorkerCommand = "worker"

// Process runs each job in a child process. The worker resolves the
// minifier from the job's type tag through its own lookup, so only types
// the worker binary knows can be built this way. An asset environment
// using a Process refuses to register any other kind.
type Process struct {
	// Command is the worker executable. Empty means the running executable.
	Command string
	// Args are the worker arguments; the job itself travels over stdin.
	Args []string
	// Env replaces the child environment when non-nil.
	Env []string
}

// NewProcess creates a process executor that re-executes the current
// binary's worker command.
func NewProcess() *Process {
	return &Process{Args: []string{WorkerCommand}}
}

// Execute implements Executor. The minifier argument is ignored; the worker
// resolves its own minifier from job.Type.
func (p *Process) Execute(ctx context.Context, job bundle.Job, _ bundle.MinifyFunc) (bundle.Result, error) {
	if err := job.Validate(); err != nil {
		return bundle.Result{}, err
	}

	command := p.Command
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return bundle.Result{}, fmt.Errorf("locate worker executable: %w", err)
		}
		command = exe
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return bundle.Result{}, fmt.Errorf("encode bundle job: %w", err)
	}

	cmd := exec.CommandContext(ctx, command, p.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	if p.Env != nil {
		cmd.Env = p.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return bundle.Result{}, fmt.Errorf("worker for %s timed out: %w", job.Target, ctx.Err())
		}
		return bundle.Result{}, errors.NewBuildError(errors.ErrCodeWorkerCrashed,
			fmt.Sprintf("worker failed: %s", strings.TrimSpace(stderr.String())), err).WithPath(job.Target)
	}

	var result bundle.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return bundle.Result{}, fmt.Errorf("decode worker result for %s: %w", job.Target, err)
	}

	return result, nil
}

// MinifierLookup resolves the minifier for an asset type tag.
type MinifierLookup func(typ string) (bundle.MinifyFunc, bool)

// ServeWorker is the child side of Process: it decodes one job from r,
// runs it and encodes the result to w.
func ServeWorker(r io.Reader, w io.Writer, lookup MinifierLookup) error {
	var job bundle.Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return fmt.Errorf("decode bundle job: %w", err)
	}

	minify, ok := lookup(job.Type)
	if !ok {
		return fmt.Errorf("worker has no minifier for type %q", job.Type)
	}

	result, err := bundle.Write(job, minify, nil)
	if err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(result)
}
