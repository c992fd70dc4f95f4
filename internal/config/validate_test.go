package config

import "testing"

func endpoints(m map[string]Endpoint) Endpoints {
	return Endpoints{Endpoints: m}
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Default(), endpoints(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	if err := Validate(cfg, endpoints(nil)); err == nil {
		t.Fatalf("expected port range error, got nil")
	}
}

func TestValidate_EmptyHost(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = " "
	if err := Validate(cfg, endpoints(nil)); err == nil {
		t.Fatalf("expected empty host error, got nil")
	}
}

func TestValidate_EmptyCommand(t *testing.T) {
	eps := endpoints(map[string]Endpoint{"/x": {Description: "no command"}})
	if err := Validate(Default(), eps); err == nil {
		t.Fatalf("expected empty command error, got nil")
	}
}

func TestValidate_HeaderInjection(t *testing.T) {
	eps := endpoints(map[string]Endpoint{"/x": {
		Command:  "true",
		Response: &ResponseConfig{Headers: HeaderList{{Name: "X-A", Value: "1\r\nSet-Cookie: a=b"}}},
	}})
	if err := Validate(Default(), eps); err == nil {
		t.Fatalf("expected header value error, got nil")
	}
}

func TestValidate_BadHeaderName(t *testing.T) {
	eps := endpoints(map[string]Endpoint{"/x": {
		Command:  "true",
		Response: &ResponseConfig{Headers: HeaderList{{Name: "X A", Value: "1"}}},
	}})
	if err := Validate(Default(), eps); err == nil {
		t.Fatalf("expected header name error, got nil")
	}
}

func TestValidate_MetricsNeedAudit(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	if err := Validate(cfg, endpoints(nil)); err == nil {
		t.Fatalf("expected metrics/audit error, got nil")
	}
	cfg.Audit.Enabled = true
	if err := Validate(cfg, endpoints(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
