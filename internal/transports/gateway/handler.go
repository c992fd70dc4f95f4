package gateway

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"cmdgate/internal/core"
	"cmdgate/internal/storage"
)

// readBufferSize ограничивает единственное чтение запроса. Строка запроса
// за пределами буфера не дочитывается и разбирается как есть.
const readBufferSize = 1024

const (
	outcomeEndpoints      = "endpoints"
	outcomeNotFound       = "not_found"
	outcomeInvalidRequest = "invalid_request"
	outcomePanic          = "panic"
)

type requestLine struct {
	Method string
	Path   string
}

// parseRequestLine берет первую строку и делит ее по пробельным символам.
// Метод не проверяется, нужны лишь два первых токена.
func parseRequestLine(raw []byte) (requestLine, bool) {
	text := core.LossyUTF8(raw)
	first, _, _ := strings.Cut(text, "\n")
	parts := strings.Fields(first)
	if len(parts) < 2 {
		return requestLine{}, false
	}
	return requestLine{Method: parts[0], Path: parts[1]}, true
}

// handleConn обслуживает одно соединение: чтение, маршрутизация, ответ, закрытие.
func (a *Adapter) handleConn(ctx context.Context, conn net.Conn) {
	start := time.Now()
	ev := storage.AuditEvent{RequestID: uuid.NewString(), Remote: remoteAddr(conn)}
	written := false

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("connection handler panic", "request_id", ev.RequestID, "remote", ev.Remote, "panic", rec)
			ev.StatusCode, ev.Outcome = 500, outcomePanic
			if !written {
				_, _ = conn.Write(BuildInternalError().Bytes())
			}
		}
		_ = conn.Close()
		ev.Duration = time.Since(start)
		a.writeAudit(ctx, ev)
	}()

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		a.logger.Debug("read request failed", "request_id", ev.RequestID, "remote", ev.Remote, "err", err)
	}

	var resp WireResponse
	line, ok := parseRequestLine(buf[:n])
	if !ok {
		resp, ev.Outcome = BuildInvalidRequest(), outcomeInvalidRequest
	} else {
		ev.Method, ev.Path = line.Method, line.Path
		resp, ev.Outcome = a.dispatch(ctx, line)
	}
	ev.StatusCode = resp.StatusCode

	written = true
	if _, err := conn.Write(resp.Bytes()); err != nil {
		a.logger.Debug("write response failed", "request_id", ev.RequestID, "remote", ev.Remote, "err", err)
		return
	}
	a.logger.Debug("request handled", "request_id", ev.RequestID, "method", ev.Method, "path", ev.Path, "status", ev.StatusCode, "outcome", ev.Outcome)
}

func (a *Adapter) dispatch(ctx context.Context, line requestLine) (WireResponse, string) {
	if line.Path == EndpointsPath {
		return BuildEndpointsResponse(a.registry.Describe()), outcomeEndpoints
	}
	def, ok := a.registry.Resolve(line.Path)
	if !ok {
		return BuildNotFound(), outcomeNotFound
	}
	res := a.executor.Execute(ctx, def)
	return BuildCommandResponse(res, def), string(res.Status)
}

func (a *Adapter) writeAudit(ctx context.Context, ev storage.AuditEvent) {
	auditCtx, cancel := context.WithTimeout(ctx, a.cfg.AuditTimeout)
	defer cancel()
	if err := a.audit.Write(auditCtx, ev); err != nil {
		a.logger.Debug("audit write failed", "request_id", ev.RequestID, "err", err)
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
