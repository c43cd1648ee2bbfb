// Package extcmd runs the external tools stage bodies delegate to.
//
// Stage bodies do not care how a linter or an image build happens to
// execute. They hand a Spec to a Runner and observe the structured
// exit status, so the execution substrate stays pluggable.
package extcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	xe "github.com/cardops/shiplane/pkg/errors"
)

// Spec describes one external command invocation.
type Spec struct {
	Path string
	Args []string

	// Dir is the working directory. Empty means the caller's.
	Dir string

	// Env entries are appended to the process environment.
	Env map[string]string
}

func (s Spec) String() string {
	return strings.Join(append([]string{s.Path}, s.Args...), " ")
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type Runner interface {
	// Run executes the command and waits for it to finish.
	//
	// A non-zero exit reports ErrExit carrying the captured output.
	// When ctx ends first, the context's error is reported instead.
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ErrExit reports a command which ran to completion with non-zero status.
type ErrExit struct {
	Command string
	Result  Result
}

var _ error = ErrExit{}

func (e ErrExit) Error() string {
	detail := strings.TrimSpace(e.Result.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(e.Result.Stdout)
	}
	if detail == "" {
		return fmt.Sprintf("%s exited with %d", e.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with %d: %s", e.Command, e.Result.ExitCode, detail)
}

func AsExitError(err error) (ErrExit, bool) {
	ee := ErrExit{}
	if errors.As(err, &ee) {
		return ee, true
	}
	return ErrExit{}, false
}

type local struct{}

// NewLocal returns a Runner executing commands as local subprocesses.
func NewLocal() Runner {
	return local{}
}

func (local) Run(ctx context.Context, spec Spec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdout, stderr := bytes.Buffer{}, bytes.Buffer{}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	// a kill caused by ctx surfaces as ExitError. report the cancel.
	if cerr := ctx.Err(); cerr != nil {
		result.ExitCode = -1
		return result, xe.Wrap(cerr)
	}

	exitErr := &exec.ExitError{}
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, xe.Wrap(ErrExit{Command: spec.String(), Result: result})
	}

	result.ExitCode = -1
	return result, xe.Wrap(err)
}
