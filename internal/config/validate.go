package config

import (
	"fmt"
	"sort"
	"strings"
)

// Validate проверяет конфигурацию и карту маршрутов, ничего не изменяя.
func Validate(cfg Config, eps Endpoints) error {
	if strings.TrimSpace(cfg.Server.Host) == "" {
		return fmt.Errorf("server.host is empty")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range 0-65535", cfg.Server.Port)
	}
	if cfg.Audit.Enabled && strings.TrimSpace(cfg.Audit.Path) == "" {
		return fmt.Errorf("audit.enabled is set but audit.path is empty")
	}
	if cfg.Metrics.Enabled && !cfg.Audit.Enabled {
		return fmt.Errorf("metrics.enabled requires audit storage to be enabled")
	}

	names := make([]string, 0, len(eps.Endpoints))
	for name := range eps.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ep := eps.Endpoints[name]
		if name == "" {
			return fmt.Errorf("endpoint with empty route")
		}
		if strings.TrimSpace(ep.Command) == "" {
			return fmt.Errorf("endpoint %q: command is empty", name)
		}
		if ep.Response == nil {
			continue
		}
		for _, h := range ep.Response.Headers {
			if h.Name == "" || strings.ContainsAny(h.Name, ": \t\r\n") {
				return fmt.Errorf("endpoint %q: invalid header name %q", name, h.Name)
			}
			if strings.ContainsAny(h.Value, "\r\n") {
				return fmt.Errorf("endpoint %q: header %q value contains a line break", name, h.Name)
			}
		}
	}
	return nil
}
