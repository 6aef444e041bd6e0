package crm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Result is the outcome of one remote command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a shell command on a cluster host
type Executor interface {
	Execute(ctx context.Context, host, command string) (*Result, error)
}

// ShellExecutor runs commands with sh -c. With a Prefix such as
// []string{"ssh", "-o", "BatchMode=yes"} the host is appended to the prefix
// and the command runs there.
type ShellExecutor struct {
	Prefix []string
}

func (e *ShellExecutor) Execute(ctx context.Context, host, command string) (*Result, error) {
	var cmd *exec.Cmd
	if len(e.Prefix) > 0 {
		args := append(append([]string(nil), e.Prefix[1:]...), host, command)
		cmd = exec.CommandContext(ctx, e.Prefix[0], args...)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run command on %s: %w", host, err)
	}
	return res, nil
}

// PrintExecutor writes commands instead of running them
type PrintExecutor struct {
	mu  sync.Mutex
	Out io.Writer
}

func (e *PrintExecutor) Execute(ctx context.Context, host, command string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.Out, "%s: %s\n", host, command); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

// RecordingExecutor remembers every command and answers with canned
// results keyed by command substring.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []string
	Hosts    []string
	Fail     map[string]*Result
}

func (e *RecordingExecutor) Execute(ctx context.Context, host, command string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = append(e.Commands, command)
	e.Hosts = append(e.Hosts, host)
	for needle, res := range e.Fail {
		if bytes.Contains([]byte(command), []byte(needle)) {
			return res, nil
		}
	}
	return &Result{}, nil
}

// Recorded returns a copy of the recorded commands
func (e *RecordingExecutor) Recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.Commands...)
}
