package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"cmdgate/internal/core"
	"cmdgate/internal/storage"
)

// Executor выполняет команду маршрута.
type Executor interface {
	Execute(ctx context.Context, def core.EndpointDefinition) core.CommandResult
}

// Config определяет параметры TCP-транспорта.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	AuditTimeout    time.Duration
	// AcceptBackoff — пауза после ошибки Accept.
	AcceptBackoff time.Duration
}

// Adapter принимает TCP-соединения и обслуживает каждое в своей горутине.
type Adapter struct {
	registry *core.Registry
	executor Executor
	audit    storage.AuditSink
	logger   *slog.Logger
	cfg      Config

	mu       sync.Mutex
	listener net.Listener
	loopDone chan struct{}
	conns    sync.WaitGroup
}

// NewAdapter создает транспорт шлюза. audit и logger могут быть nil.
func NewAdapter(registry *core.Registry, executor Executor, audit storage.AuditSink, logger *slog.Logger, cfg Config) *Adapter {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = 2 * time.Second
	}
	if cfg.AcceptBackoff <= 0 {
		cfg.AcceptBackoff = 5 * time.Millisecond
	}
	if audit == nil {
		audit = storage.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		registry: registry,
		executor: executor,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
	}
}

func (a *Adapter) Name() string { return "gateway" }

// Start синхронно занимает порт и запускает цикл accept в фоне.
// Ошибка bind возвращается вызывающему. Отмена ctx останавливает транспорт.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.listener != nil {
		a.mu.Unlock()
		return errors.New("gateway transport already started")
	}
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	done := make(chan struct{})
	a.listener = ln
	a.loopDone = done
	a.mu.Unlock()

	a.logger.Info("gateway listening", "addr", ln.Addr().String(), "endpoints", a.registry.Len(), "routes", a.registry.Names())

	// Команды не прерываются ни отключением клиента, ни остановкой транспорта.
	connCtx := context.WithoutCancel(ctx)
	go a.acceptLoop(connCtx, ln, done)

	go func() {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := a.Stop(stopCtx); err != nil {
				a.logger.Warn("gateway stop failed", "err", err)
			}
		case <-done:
		}
	}()
	return nil
}

func (a *Adapter) acceptLoop(ctx context.Context, ln net.Listener, done chan struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			a.logger.Warn("accept connection failed", "err", err)
			time.Sleep(a.cfg.AcceptBackoff)
			continue
		}
		a.conns.Add(1)
		go func() {
			defer a.conns.Done()
			a.handleConn(ctx, conn)
		}()
	}
}

// Stop закрывает listener и ждет обработчики текущих соединений в пределах ctx.
// Повторный вызов тоже ждет завершения обработчиков.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	ln := a.listener
	done := a.loopDone
	a.listener = nil
	a.mu.Unlock()
	if done == nil {
		return nil
	}

	var closeErr error
	if ln != nil {
		closeErr = ln.Close()
	}
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for accept loop: %w", ctx.Err())
	}

	drained := make(chan struct{})
	go func() {
		a.conns.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("wait for connections: %w", ctx.Err())
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", closeErr)
	}
	return nil
}

// Addr возвращает адрес listener или nil, если транспорт не запущен.
func (a *Adapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}
