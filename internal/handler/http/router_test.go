package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/config"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
	exportsvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/service/lookup"
	screensvc "github.com/cmlabs-hris/hris-dashboard-go/internal/service/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type upstreamFake struct {
	mu    sync.Mutex
	lists []url.Values
}

func (f *upstreamFake) List(ctx context.Context, resource string, params url.Values) (attendance.PageResult, error) {
	f.mu.Lock()
	f.lists = append(f.lists, params)
	f.mu.Unlock()
	return attendance.PageResult{
		Rows:       []attendance.Record{json.RawMessage(`{"id":1}`)},
		TotalCount: 31,
	}, nil
}

func (f *upstreamFake) GetJSON(ctx context.Context, resource string, params url.Values, v any) error {
	return json.Unmarshal([]byte(`[{"id":"EMP-1"}]`), v)
}

func (f *upstreamFake) Download(ctx context.Context, endpoint string, params url.Values) (export.Blob, error) {
	return export.Blob{Body: []byte("report"), ContentType: export.ContentTypeXLSX}, nil
}

// sawList reports whether any list call matched.
func (f *upstreamFake) sawList(match func(url.Values) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, params := range f.lists {
		if match(params) {
			return true
		}
	}
	return false
}

type testServer struct {
	handler http.Handler
	jwt     jwt.Service
	token   string
	fake    *upstreamFake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{App: config.AppConfig{Env: "test", ExportRateLimit: 3}}
	jwtService := jwt.NewJWTService(handlerTestSecret, time.Minute)
	token, _, err := jwtService.GenerateAccessToken("user-1", "ops@example.com", time.Hour)
	require.NoError(t, err)

	fs, err := storage.NewLocalStorage(t.TempDir(), "http://localhost/api/v1/downloads")
	require.NoError(t, err)

	fake := &upstreamFake{}
	hub := sse.NewHub()
	telemetry := observability.NewMetrics()
	screens := screensvc.NewService(screensvc.Dependencies{
		Lists: fake,
		Metrics: func(endpoint string) metrics.Source {
			return metrics.SourceFunc(func(ctx context.Context) (metrics.Snapshot, error) {
				return metrics.Snapshot{Points: []metrics.DailyPoint{{Date: "2024-03-01", Present: 12}}}, nil
			})
		},
		Blobs:      fake,
		Downloader: exportsvc.NewStorageDownloader(fs, exportsvc.JobScopedKey),
		Hub:        hub,
		Telemetry:  telemetry,
	}, screensvc.Config{Rows: 10, PollInterval: time.Hour})
	t.Cleanup(screens.Shutdown)

	router := NewRouter(cfg, jwtService, telemetry,
		NewScreenHandler(screens, jwtService),
		NewStreamHandler(screens, hub, jwtService),
		NewLookupHandler(lookup.NewLookupService(fake, nil)),
		NewDownloadHandler(fs, false),
	)
	return &testServer{handler: router, jwt: jwtService, token: token, fake: fake}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) open(t *testing.T, kind string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/screens", map[string]any{"kind": kind, "rows": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	require.NotEmpty(t, info.ID)
	return info.ID
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screens", strings.NewReader(`{"kind":"logs"}`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stream, _, err := s.jwt.GenerateStreamToken("user-1", "screen-1")
	require.NoError(t, err)
	s.token = stream
	rec, _ = s.do(t, http.MethodPost, "/api/v1/screens", map[string]any{"kind": "logs"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Heartbeat(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_screens_open")
}

func TestScreenHandler_Open_Validation(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/screens", map[string]any{"kind": "payroll", "rows": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "kind")
	assert.Contains(t, env.Error.Details, "rows")
}

func TestScreenHandler_Page_ETag(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "monthly_in_out")

	var etag string
	assert.Eventually(t, func() bool {
		rec, env := s.do(t, http.MethodGet, "/api/v1/screens/"+id+"/page", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var page attendance.PageResponse
		if json.Unmarshal(env.Data, &page) != nil || page.Loading || page.TotalCount != 31 {
			return false
		}
		etag = rec.Header().Get("ETag")
		return env.Meta["total_pages"] == float64(4)
	}, time.Second, 10*time.Millisecond)
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screens/"+id+"/page", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestScreenHandler_Filters(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "monthly_in_out")
	base := "/api/v1/screens/" + id + "/filters"

	rec, env := s.do(t, http.MethodPut, base+"/search", map[string]any{"term": "J"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"issued":true}`, string(env.Data))
	assert.Eventually(t, func() bool {
		return s.fake.sawList(func(v url.Values) bool { return v.Get("search") == "J" })
	}, time.Second, 5*time.Millisecond)

	rec, env = s.do(t, http.MethodPut, base+"/range", map[string]any{"from": "2024-03-01"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"issued":false}`, string(env.Data))

	rec, _ = s.do(t, http.MethodPut, base+"/range", map[string]any{"from": "2024-03-09", "to": "2024-03-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base+"/range", map[string]any{})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base+"/date", map[string]any{"date": "09/03/2024"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base+"/categorical/payroll", map[string]any{"values": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base+"/criterion", map[string]any{"criterion": "overtime"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec, env = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filters map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &filters))
	assert.Equal(t, "J", filters["search"])
	assert.Equal(t, "overtime", filters["criterion"])
	assert.Equal(t, true, filters["flags"].(map[string]any)["overtime"])
}

func TestScreenHandler_Metrics(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "monthly_in_out")

	assert.Eventually(t, func() bool {
		_, env := s.do(t, http.MethodGet, "/api/v1/screens/"+id+"/metrics", nil)
		var res struct {
			Ready bool `json:"ready"`
		}
		return json.Unmarshal(env.Data, &res) == nil && res.Ready
	}, time.Second, 10*time.Millisecond)

	logs := s.open(t, "logs")
	rec, _ := s.do(t, http.MethodGet, "/api/v1/screens/"+logs+"/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScreenHandler_ExportAndDownload(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "mandays")
	base := "/api/v1/screens/" + id

	rec, _ := s.do(t, http.MethodPost, base+"/exports", map[string]any{"kind": "mandays"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base+"/filters/date", map[string]any{"date": "2024-03-04"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, env := s.do(t, http.MethodPost, base+"/exports", map[string]any{"kind": "mandays"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var job export.Job
	require.NoError(t, json.Unmarshal(env.Data, &job))

	assert.Eventually(t, func() bool {
		_, env := s.do(t, http.MethodGet, base+"/exports/"+job.ID, nil)
		return json.Unmarshal(env.Data, &job) == nil && job.State == export.StateSucceeded
	}, time.Second, 10*time.Millisecond)

	rec, _ = s.do(t, http.MethodGet, base+"/exports/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	link, err := url.Parse(job.URL)
	require.NoError(t, err)
	rec, _ = s.do(t, http.MethodGet, link.Path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "report", rec.Body.String())
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), job.FileName)

	rec, _ = s.do(t, http.MethodGet, link.Path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScreenHandler_Export_RateLimited(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "logs")

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/screens/"+id+"/exports", map[string]any{"kind": "attendance"})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestScreenHandler_Close(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "daily")

	rec, _ := s.do(t, http.MethodDelete, "/api/v1/screens/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/screens/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScreenHandler_OtherUsersScreen(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "monthly_in_out")
	base := "/api/v1/screens/" + id

	owner := s.token
	other, _, err := s.jwt.GenerateAccessToken("user-2", "other@example.com", time.Hour)
	require.NoError(t, err)
	s.token = other

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, base, nil},
		{http.MethodGet, base + "/page", nil},
		{http.MethodGet, base + "/filters", nil},
		{http.MethodPut, base + "/filters/search", map[string]any{"term": "J"}},
		{http.MethodPost, base + "/exports", map[string]any{"kind": "attendance"}},
		{http.MethodGet, base + "/stream-token", nil},
		{http.MethodDelete, base, nil},
	}
	for _, tc := range cases {
		rec, _ := s.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}

	stream, _, err := s.jwt.GenerateStreamToken("user-2", id)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"/stream?token="+url.QueryEscape(stream), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.token = owner
	rec, _ = s.do(t, http.MethodGet, base+"/filters", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.fake.sawList(func(v url.Values) bool { return v.Get("search") == "J" }))
}

func TestStreamHandler_Stream(t *testing.T) {
	s := newTestServer(t)
	id := s.open(t, "monthly_in_out")
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	_, env := s.do(t, http.MethodGet, "/api/v1/screens/"+id+"/stream-token", nil)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))

	resp, err := http.Get(srv.URL + "/api/v1/screens/other/stream?token=" + url.QueryEscape(tok.Token))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/screens/"+id+"/stream?token="+url.QueryEscape(tok.Token), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var seen []string
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			seen = append(seen, name)
			if name == "page" {
				break
			}
		}
	}
	assert.Equal(t, []string{"connected", "page"}, seen)
}

func TestLookupHandler_Options(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/lookups/employee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"EMP-1"}]`, string(env.Data))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/lookups/company?refresh=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/lookups/payroll", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
