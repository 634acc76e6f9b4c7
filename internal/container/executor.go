// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"log/slog"
	"time"

	"github.com/nodesel/nodesel/internal/resolver"
)

const (
	defaultExecAttempts = 3
	defaultExecBackoff  = 200 * time.Millisecond
)

type (
	// Executor runs resolver probes through an Engine, retrying transient engine
	// failures.
	Executor struct {
		engine   Engine
		attempts int
		backoff  time.Duration
		logger   *slog.Logger
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)
)

var _ resolver.ContainerExecutor = (*Executor)(nil)

// WithRetry sets the attempt count and the initial backoff between attempts.
func WithRetry(attempts int, backoff time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.attempts = attempts
		x.backoff = backoff
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		x.logger = l
	}
}

// NewExecutor returns an Executor backed by engine.
func NewExecutor(engine Engine, opts ...ExecutorOption) *Executor {
	x := &Executor{
		engine:   engine,
		attempts: defaultExecAttempts,
		backoff:  defaultExecBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Exec runs command in the container.
func (x *Executor) Exec(ctx context.Context, containerID string, command []string) (resolver.ExecResult, error) {
	id := ContainerID(containerID)
	if err := id.Validate(); err != nil {
		return resolver.ExecResult{}, err
	}

	var res *ExecResult
	err := RetryWithBackoff(ctx, x.attempts, x.backoff, func(attempt int) (bool, error) {
		r, err := x.engine.Exec(ctx, id, command, ExecOptions{})
		if err != nil {
			retry := IsTransientError(err)
			if retry {
				x.logger.Debug("container exec failed, retrying",
					"engine", x.engine.Name(), "container", containerID, "attempt", attempt+1, "error", err)
			}
			return retry, err
		}
		res = r
		return false, nil
	})
	if err != nil {
		return resolver.ExecResult{}, err
	}
	return resolver.ExecResult{ExitCode: res.ExitCode, Output: res.Output}, nil
}
