package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errTransportExists = errors.New("transport already registered")

// TransportAdapter определяет жизненный цикл входного транспорта.
type TransportAdapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TransportManager запускает транспорты в порядке регистрации
// и останавливает в обратном.
type TransportManager struct {
	mu         sync.Mutex
	transports []TransportAdapter
	started    []TransportAdapter
}

// NewTransportManager создает пустой менеджер транспортов.
func NewTransportManager() *TransportManager {
	return &TransportManager{}
}

// Register добавляет транспорт; имена должны быть уникальны.
func (m *TransportManager) Register(adapter TransportAdapter) error {
	if adapter == nil {
		return fmt.Errorf("transport is nil: %w", errInvalidArguments)
	}
	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("transport name is empty: %w", errInvalidArguments)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tr := range m.transports {
		if tr.Name() == name {
			return fmt.Errorf("%s: %w", name, errTransportExists)
		}
	}
	m.transports = append(m.transports, adapter)
	return nil
}

// StartAll запускает все транспорты. Если один не стартовал,
// уже запущенные останавливаются и возвращается ошибка.
func (m *TransportManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	list := append([]TransportAdapter(nil), m.transports...)
	m.mu.Unlock()

	for _, tr := range list {
		if err := tr.Start(ctx); err != nil {
			_ = m.StopAll(ctx)
			return fmt.Errorf("start transport %s: %w", tr.Name(), err)
		}
		m.mu.Lock()
		m.started = append(m.started, tr)
		m.mu.Unlock()
	}
	return nil
}

// StopAll останавливает запущенные транспорты; возвращает первую ошибку.
func (m *TransportManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	list := m.started
	m.started = nil
	m.mu.Unlock()

	var firstErr error
	for i := len(list) - 1; i >= 0; i-- {
		tr := list[i]
		if err := tr.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop transport %s: %w", tr.Name(), err)
		}
	}
	return firstErr
}
