package executor

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
)

// CommandSpec describes an external process to launch. The executor treats it
// as opaque; building specs per kind is the Translator's job.
type CommandSpec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Translator turns a request into the command line for the analysis tool
type Translator interface {
	Command(req domain.Request) CommandSpec
}

// Handle is a started OS process as seen by the scheduler
type Handle interface {
	// PID returns the OS process ID
	PID() int
	// Kill signals the process to terminate
	Kill() error
	// Wait blocks until the process exits and returns a non-nil error for a
	// non-zero exit or a runner fault
	Wait() error
}

// Runner spawns OS processes. The scheduler consumes exit notifications by
// calling Wait on the returned handle from a background goroutine.
type Runner interface {
	Start(spec CommandSpec) (Handle, error)
}

// ExecRunner runs commands via os/exec
type ExecRunner struct {
	// Stdout and Stderr, when set, receive the process output. Left nil the
	// output is discarded.
	Stdout *os.File
	Stderr *os.File
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}

// Start launches the command described by spec
func (r *ExecRunner) Start(spec CommandSpec) (Handle, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Path, err)
	}
	return &execHandle{cmd: cmd}, nil
}
