package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"aniportrait/internal/logging"
	"aniportrait/internal/services"
)

// shutdownGrace is how long the worker gets to exit after stdin closes.
const shutdownGrace = 10 * time.Second

// Process is a running worker subprocess.
type Process struct {
	*Client
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	waited chan error
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Start launches argv and connects a client to its stdio. The worker's
// stderr is forwarded to the logger at debug level.
func Start(ctx context.Context, argv []string, logger *slog.Logger) (*Process, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "worker", "start", "worker command not configured", nil)
	}
	logger = logging.NewComponentLogger(logger, "worker")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "worker", "start", argv[0], err)
	}

	p := &Process{cmd: cmd, stdin: stdin, waited: make(chan error, 1), logger: logger}
	go forwardStderr(stderr, logger)
	go func() { p.waited <- cmd.Wait() }()

	p.Client = NewClient(stdout, stdin, closerFunc(p.kill), logger)
	logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_started"),
		logging.String("command", argv[0]),
		logging.Int("pid", cmd.Process.Pid),
	)
	return p, nil
}

// Close asks the worker to exit by closing stdin, killing it after a grace
// period. It is safe to call more than once.
func (p *Process) Close() error {
	if p == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		_ = p.Client.Close()
		_ = p.stdin.Close()
		select {
		case err := <-p.waited:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				p.closeErr = err
			}
		case <-time.After(shutdownGrace):
			p.logger.Warn("worker did not exit, killing",
				logging.String(logging.FieldEventType, "worker_kill"),
				logging.Duration("grace", shutdownGrace),
			)
			p.closeErr = p.kill()
		}
	})
	return p.closeErr
}

func (p *Process) kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func forwardStderr(r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			logger.Debug("worker output", logging.String("line", line))
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
