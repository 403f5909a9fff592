package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/observability"
)

const dataDir = "../../examples"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.DataDir = dataDir

	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(New(Options{Config: cfg, Gatherer: reg}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestListDatasets(t *testing.T) {
	srv := newTestServer(t)
	_, body := get(t, srv, "/api/v1/datasets")

	var got struct {
		Datasets []DatasetEntry `json:"datasets"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Datasets) != 1 || got.Datasets[0].Name != "sample" || got.Datasets[0].Tree != "sample.nwk" {
		t.Errorf("datasets = %+v", got.Datasets)
	}
}

func TestDatasetInfo(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv, "/api/v1/datasets/sample")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var info DatasetInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Nodes != 7 || info.Leaves != 4 || info.Spacers != 8 {
		t.Errorf("info = %+v", info)
	}
	if info.Schema != "current" {
		t.Errorf("schema = %q, want current", info.Schema)
	}
	if info.Optimization.BestScale <= 0 {
		t.Errorf("best scale = %v", info.Optimization.BestScale)
	}
	if info.Files[".nwk"] != "sample.nwk" {
		t.Errorf("files = %v", info.Files)
	}
}

func TestScene(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv, "/api/v1/datasets/sample/scene?switch=Inner1&collapse")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var s struct {
		Collapsed bool `json:"collapsed"`
		Nodes     []struct {
			Name     string `json:"name"`
			Switched bool   `json:"switched"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Collapsed {
		t.Error("scene should be collapsed")
	}
	switched := false
	for _, n := range s.Nodes {
		if n.Name == "Inner1" {
			switched = n.Switched
		}
	}
	if !switched {
		t.Error("Inner1 should be switched")
	}
}

func TestRender(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv, "/api/v1/datasets/sample/render/svg?title=Sample")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), "<title>Sample</title>") {
		t.Error("svg should carry the requested title")
	}

	resp, body = get(t, srv, "/api/v1/datasets/sample/render/dot")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "digraph") {
		t.Errorf("dot: status %d, body %.40s", resp.StatusCode, body)
	}
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"unknown dataset", "/api/v1/datasets/nope/scene", 404, "NOT_FOUND"},
		{"hidden dataset", "/api/v1/datasets/.git/scene", 400, "INVALID_PATH"},
		{"unknown format", "/api/v1/datasets/sample/render/gif", 400, "INVALID_FORMAT"},
		{"unknown switch", "/api/v1/datasets/sample/scene?switch=Nope", 404, "NOT_FOUND"},
		{"bad scale", "/api/v1/datasets/sample/scene?scale=huge", 400, "INVALID_INPUT"},
		{"bad collapse", "/api/v1/datasets/sample/scene?collapse=maybe", 400, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv, tt.path)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if !strings.Contains(string(body), `"code":"`+tt.code+`"`) {
				t.Errorf("body = %s, want code %s", body, tt.code)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	get(t, srv, "/api/v1/datasets/sample/scene")

	resp, body := get(t, srv, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `route="/api/v1/datasets/{name}/scene"`) {
		t.Errorf("metrics should label requests by route pattern:\n%s", body)
	}
}
