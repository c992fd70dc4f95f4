package storage

import "context"

// AuditSink принимает события обработанных запросов.
type AuditSink interface {
	Write(ctx context.Context, ev AuditEvent) error
}

// Discard — AuditSink, который ничего не записывает.
type Discard struct{}

func (Discard) Write(ctx context.Context, ev AuditEvent) error { return nil }
