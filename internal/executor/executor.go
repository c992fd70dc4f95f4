package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"cmdgate/internal/core"
)

// Runner запускает процесс без shell и возвращает захваченные stdout/stderr.
// err — ошибка запуска либо *exec.ExitError при ненулевом коде выхода.
type Runner func(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)

// Executor синхронно выполняет команды маршрутов.
type Executor struct {
	run Runner
}

// New создает Executor поверх os/exec.
func New() *Executor {
	return &Executor{run: runProcess}
}

// NewWithRunner подменяет примитив запуска процессов (для тестов).
func NewWithRunner(run Runner) *Executor {
	if run == nil {
		run = runProcess
	}
	return &Executor{run: run}
}

func runProcess(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Execute запускает команду маршрута и ждет ее завершения. Таймаута нет:
// вызов блокируется, пока процесс не выйдет или ctx не будет отменен.
func (e *Executor) Execute(ctx context.Context, def core.EndpointDefinition) core.CommandResult {
	stdout, stderr, err := e.run(ctx, def.Command, def.Args)
	if err == nil {
		return core.CommandResult{Status: core.StatusSuccess, Output: clean(stdout)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return core.CommandResult{Status: core.StatusError, Error: clean(stderr)}
	}
	return core.CommandResult{Status: core.StatusError, Error: err.Error()}
}

func clean(b []byte) string {
	return strings.TrimSpace(core.LossyUTF8(b))
}
