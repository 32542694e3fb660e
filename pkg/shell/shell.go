// Package shell runs external commands without a shell, capturing output
// and exit status. Provisioning commands are irreversible, so there is no
// retry and no deadline: once a command starts we wait for it to exit.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

type Result struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Run executes name with args and blocks until it exits. A nonzero exit
// status is returned both in Result.Code and as a non-nil error.
func Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), Code: exitCode(err)}, err
}

// RunInteractive launches the command, writes each input line (newline
// terminated, in order) to its stdin, closes stdin and waits for the command
// to exit. Used to answer interactive prompts such as passphrase entry.
func RunInteractive(ctx context.Context, input []string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{Code: -1}, fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{Code: -1}, err
	}
	for _, line := range input {
		if _, err := stdin.Write([]byte(line + "\n")); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), Code: -1}, fmt.Errorf("write input: %w", err)
		}
	}
	_ = stdin.Close()

	err = cmd.Wait()
	return Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), Code: exitCode(err)}, err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
