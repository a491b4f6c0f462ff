package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// fakeAPI — минимальный Elastix API для тестов CLI.
type fakeAPI struct {
	t        *testing.T
	lastBody map[string]any
	lastPath string
	execute  map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{
		t: t,
		execute: map[string]any{
			"execution_id":         "e-1",
			"is_execution_success": true,
			"status_code":          200,
			"body":                 map[string]any{"found": true},
			"duration_ms":          3,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/datasources", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{
				"id":   "ds-1",
				"name": "planets",
				"config": map[string]any{
					"endpoints": []map[string]any{{"host": "localhost", "port": 9200}},
					"auth":      map[string]any{"username": "elastic", "password": "******"},
				},
				"created_at": "2024-01-01T00:00:00Z",
			}},
			"total": 1,
		})
	})
	mux.HandleFunc("POST /api/v1/datasources", func(w http.ResponseWriter, r *http.Request) {
		body := api.record(r)
		if body["name"] == "broken" {
			writeEnvelope(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{
					"code":     "VALIDATION_FAILED",
					"message":  "invalid datasource configuration",
					"invalids": []string{"No endpoint provided."},
				},
			})
			return
		}
		writeEnvelope(w, http.StatusCreated, map[string]any{
			"data": map[string]any{"id": "ds-2", "name": body["name"], "config": body["config"]},
		})
	})
	mux.HandleFunc("DELETE /api/v1/datasources/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "ds-1" {
			writeEnvelope(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "datasource not found"},
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/datasources/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, map[string]any{"data": api.execute})
	})
	mux.HandleFunc("POST /api/v1/datasources/{id}/execute/async", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusAccepted, map[string]any{
			"data": map[string]any{"execution_id": "e-2", "status": "PENDING"},
		})
	})
	mux.HandleFunc("GET /api/v1/executions", func(w http.ResponseWriter, r *http.Request) {
		api.lastPath = r.URL.String()
		writeEnvelope(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) record(r *http.Request) map[string]any {
	a.lastPath = r.URL.String()
	a.lastBody = nil
	if err := json.NewDecoder(r.Body).Decode(&a.lastBody); err != nil && !errors.Is(err, io.EOF) {
		a.t.Errorf("decode request: %v", err)
	}
	return a.lastBody
}

func writeEnvelope(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &stdout, errW: &stderr}, &stdout, &stderr
}

// --- Client ---

func TestClientListDatasources(t *testing.T) {
	_, srv := newFakeAPI(t)
	client := NewClient(srv.URL)

	datasources, err := client.ListDatasources()
	if err != nil {
		t.Fatalf("ListDatasources: %v", err)
	}
	if len(datasources) != 1 {
		t.Fatalf("got %d datasources", len(datasources))
	}
	ds := datasources[0]
	if ds.Name != "planets" || ds.Config.Endpoints[0].Port != 9200 || ds.Config.Auth.Username != "elastic" {
		t.Errorf("unexpected datasource %+v", ds)
	}
}

func TestClientValidationError(t *testing.T) {
	_, srv := newFakeAPI(t)
	client := NewClient(srv.URL)

	_, err := client.CreateDatasource(CreateDatasourceRequest{Name: "broken"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Code != "VALIDATION_FAILED" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if len(apiErr.Invalids) != 1 {
		t.Errorf("invalids = %v", apiErr.Invalids)
	}
	if got := err.Error(); got != "VALIDATION_FAILED: invalid datasource configuration" {
		t.Errorf("message = %q", got)
	}
}

func TestClientNonJSONError(t *testing.T) {
	_, srv := newFakeAPI(t)
	client := NewClient(srv.URL)

	_, err := client.GetExecution("e-1")
	if err == nil || err.Error() != "API error: HTTP 502" {
		t.Errorf("got %v", err)
	}
}

func TestClientDelete(t *testing.T) {
	_, srv := newFakeAPI(t)
	client := NewClient(srv.URL)

	if err := client.DeleteDatasource("ds-1"); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := client.DeleteDatasource("ds-9"); err == nil {
		t.Error("expected not found")
	}
}

func TestClientListExecutionsQuery(t *testing.T) {
	api, srv := newFakeAPI(t)
	client := NewClient(srv.URL)

	_, err := client.ListExecutions(ListExecutionsOpts{DatasourceID: "ds-1", Status: "FAILED", Limit: 5})
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	want := "/api/v1/executions?datasource_id=ds-1&limit=5&status=FAILED"
	if api.lastPath != want {
		t.Errorf("path = %q, want %q", api.lastPath, want)
	}
}

// --- Commands ---

func TestExecCmd(t *testing.T) {
	api, srv := newFakeAPI(t)
	out, stdout, stderr := testOutput(false)

	cmd := NewExecCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"ds-1", "get", "/planets/_doc/id1"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("exec: %v", err)
	}

	if api.lastPath != "/api/v1/datasources/ds-1/execute" {
		t.Errorf("path = %s", api.lastPath)
	}
	if api.lastBody["method"] != "GET" || api.lastBody["path"] != "/planets/_doc/id1" {
		t.Errorf("request = %v", api.lastBody)
	}
	if _, ok := api.lastBody["body"]; ok {
		t.Error("empty body must be omitted")
	}
	if !strings.Contains(stdout.String(), `"found": true`) {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "HTTP 200 in 3ms (execution e-1)") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExecCmdBodyFile(t *testing.T) {
	api, srv := newFakeAPI(t)
	out, _, _ := testOutput(false)

	path := filepath.Join(t.TempDir(), "bulk.ndjson")
	ndjson := "{\"delete\": {\"_index\": \"planets\", \"_id\": \"1\"}}\n"
	if err := os.WriteFile(path, []byte(ndjson), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := NewExecCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"ds-1", "POST", "/_bulk", "--body-file", path})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if api.lastBody["body"] != ndjson {
		t.Errorf("body = %q, want file contents", api.lastBody["body"])
	}
}

func TestExecCmdFailure(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.execute = map[string]any{
		"execution_id":         "e-3",
		"is_execution_success": false,
		"status_code":          404,
		"error_kind":           "BACKEND",
		"error_message":        "backend error: HTTP 404: document not found",
		"body":                 nil,
	}
	out, _, stderr := testOutput(false)

	cmd := NewExecCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"ds-1", "GET", "/planets/_doc/none"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected failed action to fail the command")
	}
	if !strings.Contains(stderr.String(), "BACKEND: backend error: HTTP 404: document not found") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExecCmdAsync(t *testing.T) {
	api, srv := newFakeAPI(t)
	out, stdout, _ := testOutput(true)

	cmd := NewExecCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"ds-1", "HEAD", "/planets", "--async"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if api.lastPath != "/api/v1/datasources/ds-1/execute/async" {
		t.Errorf("path = %s", api.lastPath)
	}

	var res AsyncExecuteResponse
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.ExecutionID != "e-2" || res.Status != "PENDING" {
		t.Errorf("got %+v", res)
	}
}

func TestExecCmdBodyConflict(t *testing.T) {
	_, srv := newFakeAPI(t)
	out, _, _ := testOutput(false)

	cmd := NewExecCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"ds-1", "POST", "/_search", "--body", "{}", "--body-file", "x.json"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for --body with --body-file")
	}
}

func TestDatasourceCreateFromYAML(t *testing.T) {
	api, srv := newFakeAPI(t)
	out, _, stderr := testOutput(false)

	path := filepath.Join(t.TempDir(), "planets.yaml")
	yamlDef := `name: planets
config:
  endpoints:
    - host: es1
      port: 9200
    - host: https://es2
  auth:
    username: elastic
    password: changeme
  timeout_sec: 5
`
	if err := os.WriteFile(path, []byte(yamlDef), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := NewDatasourceCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"create", "--file", path, "--name", "planets-prod"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("create: %v", err)
	}

	if api.lastBody["name"] != "planets-prod" {
		t.Errorf("flag must override file name, got %v", api.lastBody["name"])
	}
	cfg, _ := api.lastBody["config"].(map[string]any)
	endpoints, _ := cfg["endpoints"].([]any)
	if len(endpoints) != 2 {
		t.Fatalf("endpoints = %v", cfg["endpoints"])
	}
	if cfg["timeout_sec"] != float64(5) {
		t.Errorf("timeout_sec = %v", cfg["timeout_sec"])
	}
	if !strings.Contains(stderr.String(), "Datasource created: ds-2") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestDatasourceCreateInvalid(t *testing.T) {
	_, srv := newFakeAPI(t)
	out, _, stderr := testOutput(false)

	cmd := NewDatasourceCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"create", "--name", "broken"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stderr.String(), "No endpoint provided.") {
		t.Errorf("invalids not printed: %q", stderr.String())
	}
}

func TestLoadDatasourceFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	data := `{"name": "logs", "config": {"endpoints": [{"host": "localhost", "port": 9200}], "scheme": "https", "skip_tls_verify": true}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	req, err := loadDatasourceFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.Name != "logs" || req.Config.Scheme != "https" || !req.Config.SkipTLSVerify {
		t.Errorf("got %+v", req)
	}
	if len(req.Config.Endpoints) != 1 || req.Config.Endpoints[0].Port != 9200 {
		t.Errorf("endpoints = %+v", req.Config.Endpoints)
	}

	if _, err := loadDatasourceFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{raw: "localhost", want: Endpoint{Host: "localhost"}},
		{raw: "localhost:9200", want: Endpoint{Host: "localhost", Port: 9200}},
		{raw: "https://es.example.com", want: Endpoint{Host: "https://es.example.com"}},
		{raw: "https://es.example.com:9243", want: Endpoint{Host: "https://es.example.com", Port: 9243}},
		{raw: "localhost:http", wantErr: true},
		{raw: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseEndpoint(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- Output ---

func TestOutputBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"text", `"green open planets\n"`, "green open planets\n"},
		{"text without newline", `"pong"`, "pong\n"},
		{"object", `{"a":1}`, "{\n  \"a\": 1\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stdout, _ := testOutput(false)
			out.Body(json.RawMessage(tt.raw))
			if stdout.String() != tt.want {
				t.Errorf("got %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestOutputTable(t *testing.T) {
	out, stdout, _ := testOutput(false)
	out.Print([]string{"ID", "NAME"}, [][]string{{"1", "planets"}}, nil)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[1], "--") || !strings.Contains(lines[2], "planets") {
		t.Errorf("unexpected table %q", stdout.String())
	}
}
