package zfs

import (
	"context"

	"zfsinstall/pkg/shell"
)

// Runner abstracts command execution so the pipeline can be exercised
// without touching real block devices.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (shell.Result, error)
	RunInteractive(ctx context.Context, input []string, name string, args ...string) (shell.Result, error)
}

type execRunner struct{}

// NewRunner returns the Runner backed by real process execution.
func NewRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	return shell.Run(ctx, name, args...)
}

func (execRunner) RunInteractive(ctx context.Context, input []string, name string, args ...string) (shell.Result, error) {
	return shell.RunInteractive(ctx, input, name, args...)
}
