package storage

import (
	"context"
	"time"
)

// MetricRecord хранит снимок метрик узла.
type MetricRecord struct {
	Module  string
	Payload []byte
	TS      time.Time
}

// AuditEvent фиксирует один обработанный запрос шлюза.
type AuditEvent struct {
	RequestID  string
	Remote     string
	Method     string
	Path       string
	StatusCode int
	// Outcome — "success"/"error" для выполненной команды,
	// "endpoints", "not_found" или "invalid_request" для остальных ответов.
	Outcome  string
	Duration time.Duration
	TS       time.Time
}

// AuditQuery задает фильтры выборки аудита.
type AuditQuery struct {
	From  time.Time
	To    time.Time
	Path  string
	Limit int
}

// Store описывает операции хранилища.
type Store interface {
	AuditSink
	SaveMetric(ctx context.Context, rec MetricRecord) error
	LatestMetric(ctx context.Context, module string) (MetricRecord, error)
	QueryAudit(ctx context.Context, q AuditQuery) ([]AuditEvent, error)
	PruneAudit(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
