package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/graph"
	"github.com/repolens/repolens/store"
)

// stubEngine satisfies repolens.Engine with canned values so the HTTP
// layer can be tested without providers or a database.
type stubEngine struct {
	report    *repolens.Report
	stored    *store.StoredReport
	results   []repolens.SearchResult
	apps      []repolens.AppInfo
	err       error
	lastDir   string
	lastAreas []string
	deleted   []string
}

func (s *stubEngine) Analyze(_ context.Context, dir string, _ ...repolens.AnalyzeOption) (*repolens.Report, error) {
	s.lastDir = dir
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubEngine) MapArchitecture(context.Context, string, ...repolens.AnalyzeOption) (*graph.Map, error) {
	return nil, s.err
}

func (s *stubEngine) GetReport(_ context.Context, appID string, areas []string) (*store.StoredReport, error) {
	s.lastAreas = areas
	if s.err != nil {
		return nil, s.err
	}
	return s.stored, nil
}

func (s *stubEngine) Search(context.Context, string, ...repolens.SearchOption) ([]repolens.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubEngine) ListApps(context.Context) ([]repolens.AppInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.apps, nil
}

func (s *stubEngine) DeleteApp(_ context.Context, appID string) error {
	s.deleted = append(s.deleted, appID)
	return s.err
}

func (s *stubEngine) Store() *store.Store { return nil }

func (s *stubEngine) Close() error { return nil }

func serveRequest(e repolens.Engine, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	newServeMux(newHandler(e)).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body, err)
	}
	return m
}

func TestHandleAnalyze(t *testing.T) {
	dir := t.TempDir()
	stub := &stubEngine{report: &repolens.Report{
		AppID: "app1", AppName: "demo", Stored: true, Chunks: 2,
	}}

	body := fmt.Sprintf(`{"path": %q, "app_id": "app1"}`, dir)
	rec := serveRequest(stub, http.MethodPost, "/analyze", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody(t, rec)
	if resp["app_id"] != "app1" {
		t.Errorf("app_id: got %v", resp["app_id"])
	}
	if stub.lastDir != dir {
		t.Errorf("engine received dir %q, want %q", stub.lastDir, dir)
	}
}

func TestHandleAnalyzeRejectsBadRequests(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing path", `{}`},
		{"nonexistent path", `{"path": "/no/such/dir"}`},
		{"file not directory", fmt.Sprintf(`{"path": %q}`, filePath)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveRequest(&stubEngine{}, http.MethodPost, "/analyze", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleAnalyzeErrorMapping(t *testing.T) {
	dir := t.TempDir()
	body := fmt.Sprintf(`{"path": %q}`, dir)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown area", fmt.Errorf("%w: %q", repolens.ErrUnknownFocusArea, "security"), http.StatusBadRequest},
		{"no files", fmt.Errorf("collecting sources: %w", repolens.ErrNoFiles), http.StatusBadRequest},
		{"internal", errors.New("provider exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveRequest(&stubEngine{err: tc.err}, http.MethodPost, "/analyze", body)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
			resp := decodeBody(t, rec)
			if msg, _ := resp["error"].(string); msg == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	stub := &stubEngine{results: []repolens.SearchResult{
		{AppID: "app1", AppName: "Billing", Score: 0.9, Source: "both"},
	}}

	rec := serveRequest(stub, http.MethodPost, "/search", `{"query": "structured logging"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody(t, rec)
	results, ok := resp["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results: got %v", resp["results"])
	}
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	rec := serveRequest(&stubEngine{}, http.MethodPost, "/search", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHandleSearchStoreUnavailable(t *testing.T) {
	rec := serveRequest(&stubEngine{err: repolens.ErrStoreNotConfigured},
		http.MethodPost, "/search", `{"query": "logging"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestHandleGetReport(t *testing.T) {
	stub := &stubEngine{stored: &store.StoredReport{
		DocID: "quality-app1-logging", AppID: "app1", Content: "# Report",
	}}

	rec := serveRequest(stub, http.MethodGet, "/reports/app1?focus=logging,availability", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody(t, rec)
	if resp["doc_id"] != "quality-app1-logging" {
		t.Errorf("doc_id: got %v", resp["doc_id"])
	}
	if got := strings.Join(stub.lastAreas, ","); got != "logging,availability" {
		t.Errorf("focus areas: got %q", got)
	}
}

func TestHandleGetReportNotFound(t *testing.T) {
	rec := serveRequest(&stubEngine{err: repolens.ErrReportNotFound},
		http.MethodGet, "/reports/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestHandleDeleteReports(t *testing.T) {
	stub := &stubEngine{}
	rec := serveRequest(stub, http.MethodDelete, "/reports/app1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	if resp := decodeBody(t, rec); resp["status"] != "deleted" {
		t.Errorf("body: got %v", resp)
	}
	if len(stub.deleted) != 1 || stub.deleted[0] != "app1" {
		t.Errorf("deleted apps: got %v", stub.deleted)
	}
}

func TestHandleDeleteReportsNotFound(t *testing.T) {
	rec := serveRequest(&stubEngine{err: fmt.Errorf("%w: app ghost", repolens.ErrReportNotFound)},
		http.MethodDelete, "/reports/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestHandleListApps(t *testing.T) {
	stub := &stubEngine{apps: []repolens.AppInfo{
		{AppID: "app1", AppName: "Billing", Reports: 1},
	}}

	rec := serveRequest(stub, http.MethodGet, "/apps", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody(t, rec)
	apps, ok := resp["apps"].([]any)
	if !ok || len(apps) != 1 {
		t.Fatalf("apps: got %v", resp["apps"])
	}
}

func TestHandleHealth(t *testing.T) {
	rec := serveRequest(&stubEngine{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["status"] != "ok" {
		t.Errorf("body: got %v", resp)
	}
}
