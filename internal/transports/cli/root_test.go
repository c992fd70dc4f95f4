package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cmdgate/internal/modules/host"
	"cmdgate/internal/storage"
	"cmdgate/internal/storage/sqlite"
)

const endpointsYAML = `
endpoints:
  /hello:
    command: echo
    args: ["hello", "world"]
    description: Greets
  /fail:
    command: sh
    args: ["-c", "echo boom >&2; exit 2"]
    description: Fails
`

func writeEndpoints(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	if err := os.WriteFile(path, []byte(endpointsYAML), 0o600); err != nil {
		t.Fatalf("write endpoints: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != "1.2.3" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestEndpointsCommand(t *testing.T) {
	out, err := execute(t, "endpoints", "--endpoints", writeEndpoints(t))
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	var listing map[string]string
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(listing) != 2 || listing["/hello"] != "Greets" || listing["/fail"] != "Fails" {
		t.Fatalf("unexpected listing: %v", listing)
	}
}

func TestRunCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
	eps := writeEndpoints(t)

	out, err := execute(t, "run", "/hello", "--endpoints", eps)
	if err != nil {
		t.Fatalf("run /hello: %v", err)
	}
	if strings.TrimSpace(out) != `{"status":"success","output":"hello world","error":null}` {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, "run", "/fail", "--endpoints", eps)
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if strings.TrimSpace(out) != `{"status":"error","output":"","error":"boom"}` {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := execute(t, "run", "/missing", "--endpoints", eps); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestAuditCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	st, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	err = st.Write(context.Background(), storage.AuditEvent{
		RequestID: "r1", Method: "GET", Path: "/hello", StatusCode: 200, Outcome: "success", Duration: 3 * time.Millisecond,
	})
	_ = st.Close()
	if err != nil {
		t.Fatalf("write audit: %v", err)
	}

	out, err := execute(t, "audit", "--db", dbPath, "--path", "/hello")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	var rows []auditDTO
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 1 || rows[0].RequestID != "r1" || rows[0].DurationMS != 3 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestHostStatusLatest(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	if _, err := execute(t, "host", "status", "--latest", "--db", dbPath); err == nil {
		t.Fatal("expected error for empty metrics table")
	}

	st, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	payload, err := sqlite.MarshalPayload(host.Snapshot{Hostname: "gw-1", Load1: 0.5})
	if err == nil {
		err = st.SaveMetric(context.Background(), storage.MetricRecord{Module: host.ModuleName, Payload: payload})
	}
	_ = st.Close()
	if err != nil {
		t.Fatalf("save metric: %v", err)
	}

	out, err := execute(t, "host", "status", "--latest", "--db", dbPath)
	if err != nil {
		t.Fatalf("host status --latest: %v", err)
	}
	var got struct {
		Module   string        `json:"module"`
		TS       string        `json:"ts"`
		Snapshot host.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Module != host.ModuleName || got.Snapshot.Hostname != "gw-1" || got.Snapshot.Load1 != 0.5 || got.TS == "" {
		t.Fatalf("unexpected snapshot: %#v", got)
	}
}
