package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/engine"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/metrics"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/render"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/store"
)

const planJSON = `{
  "format_version": "1.2",
  "terraform_version": "1.7.5",
  "resource_changes": [
    {
      "address": "aws_db_instance.db",
      "mode": "managed",
      "type": "aws_db_instance",
      "name": "db",
      "provider_name": "registry.terraform.io/hashicorp/aws",
      "change": {
        "actions": ["create"],
        "before": null,
        "after": {"instance_class": "db.t3.micro", "publicly_accessible": true}
      }
    }
  ]
}`

type testEnv struct {
	server  *httptest.Server
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))

	ce := engine.NewDefaultComplianceEngine(nil, logger)
	se := engine.NewDefaultSecurityEngine(nil, logger)
	co := engine.NewDefaultCostEngine(nil, logger)
	mc := metrics.NewCollector(nil)

	ids := []string{"run-1", "run-2", "run-3"}
	next := 0
	orch := analysis.New(ce, se, co, findings.NewProcessor(logger),
		analysis.WithStore(store.NewMemoryStore()),
		analysis.WithMetrics(mc),
		analysis.WithIDGenerator(func() string {
			id := ids[next]
			next++
			return id
		}),
	)

	router := ConfigureRouter(Config{
		Addr:            ":0",
		ShutdownTimeout: time.Second,
		Dependencies: Dependencies{
			Analyses: orch,
			Catalogs: []render.Catalog{ce, se, co},
			Metrics:  mc,
			Logger:   logger,
		},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, metrics: mc}
}

func (e *testEnv) do(t *testing.T, method, path, tenant, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func submit(t *testing.T, e *testEnv, tenant string) *models.AnalysisResult {
	t.Helper()
	body, err := json.Marshal(analysis.Request{PlanData: planJSON, PlanFormat: "json"})
	require.NoError(t, err)
	resp, data := e.do(t, http.MethodPost, "/api/v1/analyses", tenant, string(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &res))
	return &res
}

func TestCreateAndFetchAnalysis(t *testing.T) {
	e := newTestEnv(t)

	res := submit(t, e, "acme")
	assert.Equal(t, "run-1", res.ID)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, "acme", res.Metadata.TenantID)
	assert.NotEmpty(t, res.Findings)

	resp, data := e.do(t, http.MethodGet, "/api/v1/analyses/run-1", "acme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &fetched))
	assert.Equal(t, res.Summary.TotalFindings, fetched.Summary.TotalFindings)

	// Another tenant cannot see it.
	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses/run-1", "globex", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAnalysis_BadInput(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed body", `{"plan_data":`, "decode request"},
		{"missing plan", `{"plan_format":"json"}`, "plan_data"},
		{"unparseable plan", `{"plan_data":"not json","plan_format":"json"}`, "parse"},
		{"binary plan", `{"plan_data":"AAAA","plan_format":"binary"}`, "binary"},
		{"unknown framework", `{"plan_data":"{}","scan_options":{"frameworks":["PCI"]}}`, "frameworks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := e.do(t, http.MethodPost, "/api/v1/analyses", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var er errorResponse
			require.NoError(t, json.Unmarshal(data, &er))
			assert.Contains(t, strings.ToLower(er.Error), tt.want)
		})
	}
}

func TestListAnalyses(t *testing.T) {
	e := newTestEnv(t)
	submit(t, e, "acme")
	submit(t, e, "globex")
	submit(t, e, "acme")

	list := func(path, tenant string) []AnalysisListItem {
		resp, data := e.do(t, http.MethodGet, path, tenant, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		var items []AnalysisListItem
		require.NoError(t, json.Unmarshal(data, &items))
		return items
	}

	assert.Len(t, list("/api/v1/analyses", ""), 3)
	assert.Len(t, list("/api/v1/analyses", "acme"), 2)
	assert.Len(t, list("/api/v1/analyses?tenant_id=globex", ""), 1)
	assert.Len(t, list("/api/v1/analyses?limit=1", ""), 1)
	assert.Empty(t, list("/api/v1/analyses?status=failed", ""))

	resp, _ := e.do(t, http.MethodGet, "/api/v1/analyses?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses?status=running", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteAnalysis(t *testing.T) {
	e := newTestEnv(t)
	submit(t, e, "acme")

	resp, _ := e.do(t, http.MethodDelete, "/api/v1/analyses/run-1", "globex", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/api/v1/analyses/run-1", "acme", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses/run-1", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/api/v1/analyses/run-1", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportAnalysis(t *testing.T) {
	e := newTestEnv(t)
	res := submit(t, e, "")

	resp, data := e.do(t, http.MethodGet, "/api/v1/analyses/run-1/export?format=csv", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "analysis-run-1.csv")
	lines := strings.Split(string(data), "\n")
	assert.Len(t, lines, len(res.Findings)+1)
	assert.True(t, strings.HasPrefix(lines[0], `"id","kind","severity"`), lines[0])

	resp, data = e.do(t, http.MethodGet, "/api/v1/analyses/run-1/export?format=markdown", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(data), "# Findings Report"))

	resp, data = e.do(t, http.MethodGet, "/api/v1/analyses/run-1/export?min_severity=critical", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exported []models.ProcessedFinding
	require.NoError(t, json.Unmarshal(data, &exported))
	require.NotEmpty(t, exported)
	for _, f := range exported {
		assert.Equal(t, models.SeverityCritical, f.Severity)
	}

	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses/run-1/export?format=xml", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses/run-1/export?min_severity=info", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/v1/analyses/nope/export", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRules(t *testing.T) {
	e := newTestEnv(t)

	resp, data := e.do(t, http.MethodGet, "/api/v1/rules", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []render.RuleInfo
	require.NoError(t, json.Unmarshal(data, &all))
	assert.NotEmpty(t, all)

	resp, data = e.do(t, http.MethodGet, "/api/v1/rules?domain=security", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sec []render.RuleInfo
	require.NoError(t, json.Unmarshal(data, &sec))
	assert.Less(t, len(sec), len(all))
	for _, r := range sec {
		assert.Equal(t, "security", r.Domain)
	}

	resp, data = e.do(t, http.MethodGet, "/api/v1/rules/SEC_RDS_PUBLIC", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one render.RuleInfo
	require.NoError(t, json.Unmarshal(data, &one))
	assert.Equal(t, models.SeverityCritical, one.Severity)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/rules/NOPE", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	submit(t, e, "")

	resp, data := e.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"ok"`)

	resp, data = e.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `sl_analyses_total{status="completed"} 1`)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) PerformAnalysis(ctx context.Context, req analysis.Request) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *mockService) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *mockService) ListAnalyses(ctx context.Context, filter analysis.ListFilter) ([]*models.AnalysisResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AnalysisResult), args.Error(1)
}

func (m *mockService) DeleteAnalysis(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestServiceErrors(t *testing.T) {
	svc := new(mockService)
	router := ConfigureRouter(Config{Dependencies: Dependencies{
		Analyses: svc,
		Logger:   zerolog.New(zerolog.NewTestWriter(t)),
	}})
	srv := httptest.NewServer(router)
	defer srv.Close()

	boom := errors.New("disk on fire")
	svc.On("PerformAnalysis", mock.Anything, mock.Anything).Return(nil, boom)
	svc.On("GetAnalysis", mock.Anything, "x").Return(nil, boom)
	svc.On("ListAnalyses", mock.Anything, analysis.ListFilter{TenantID: "acme"}).Return(nil, boom)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/analyses", `{"plan_data":"{}"}`},
		{http.MethodGet, "/api/v1/analyses/x", ""},
		{http.MethodGet, "/api/v1/analyses?tenant_id=acme", ""},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, tt.path)
		assert.NotContains(t, string(data), "disk on fire", "internal errors stay out of responses")
	}
	svc.AssertExpectations(t)

	// /metrics is only mounted with a collector.
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
