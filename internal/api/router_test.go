package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnp/record-ledger/internal/api/handlers"
	"github.com/thanhnp/record-ledger/internal/api/middleware"
	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/models"
	"github.com/thanhnp/record-ledger/internal/notifier"
)

const testToken = "s3cret"

type testServer struct {
	router   *Router
	registry *ledger.Registry
	notifier *notifier.Notifier
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	return newTestServerWith(t, Settings{AuthToken: token, AuthReads: true})
}

func newTestServerWith(t *testing.T, settings Settings) *testServer {
	t.Helper()
	registry := ledger.NewRegistry()
	n := notifier.New(8)

	for _, name := range []string{"refugees", "health"} {
		l, err := ledger.New(ledger.Options{
			Name:     name,
			Clock:    ledger.NewStepClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Second),
			OnAppend: func(b models.Block) { n.Publish(name, b) },
		})
		require.NoError(t, err)
		registry.Register(name, l)
	}

	settings.Schemas = map[string]handlers.PayloadValidator{"health": handlers.ValidateVitals}
	router := NewRouter(registry, n, settings)
	return &testServer{router: router, registry: registry, notifier: n}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = s.do(http.MethodGet, "/health", "", middleware.RequestIDHeader, "abc")
	assert.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
}

func TestAppendValidateAndFind(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id": 1, "name": "John Doe"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.Block](t, w)
	assert.Equal(t, int64(1), first.Index)

	w = s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id": 2, "name": "Jane Doe"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[models.Block](t, w)
	assert.Equal(t, first.Hash, second.PreviousHash)

	w = s.do(http.MethodGet, "/api/v1/refugees/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.ValidationResult](t, w)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(-1), res.FirstBadIndex)
	assert.Equal(t, 3, res.Length)

	w = s.do(http.MethodGet, "/api/v1/refugees/records/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[models.Record](t, w)
	assert.Equal(t, int64(1), rec.BlockIndex)
	assert.Equal(t, "John Doe", rec.Value.(map[string]any)["name"])

	w = s.do(http.MethodGet, "/api/v1/refugees/records/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlockLookups(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(http.MethodPost, "/api/v1/refugees/blocks", `["a","b"]`)
	require.Equal(t, http.StatusCreated, w.Code)
	appended := decode[models.Block](t, w)

	w = s.do(http.MethodGet, "/api/v1/refugees/blocks", "")
	require.Equal(t, http.StatusOK, w.Code)
	chain := decode[[]models.Block](t, w)
	require.Len(t, chain, 2)
	assert.True(t, ledger.ValidateChain(chain, ledger.LinkPreviousHash).Valid)

	w = s.do(http.MethodGet, "/api/v1/refugees/blocks/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, appended.Hash, decode[models.Block](t, w).Hash)

	w = s.do(http.MethodGet, "/api/v1/refugees/blocks/index/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chain[0].Hash, decode[models.Block](t, w).Hash)

	w = s.do(http.MethodGet, "/api/v1/refugees/blocks/"+appended.Hash, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[models.Block](t, w).Index)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/refugees/blocks/index/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/refugees/blocks/index/x", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/refugees/blocks/ffff", "").Code)
}

func TestRecordList(t *testing.T) {
	s := newTestServer(t, "")
	for _, body := range []string{`{"id":1,"ward":"A"}`, `{"id":2,"ward":"B"}`, `{"id":3,"ward":"A"}`} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/refugees/blocks", body).Code)
	}

	w := s.do(http.MethodGet, "/api/v1/refugees/records?field=ward&value=A", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Records []models.Record `json:"records"`
		Count   int             `json:"count"`
	}](t, w)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, int64(1), body.Records[0].BlockIndex)
	assert.Equal(t, int64(3), body.Records[1].BlockIndex)

	w = s.do(http.MethodGet, "/api/v1/refugees/records?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/refugees/records?limit=0", "").Code)
}

func TestAppendRejectsBadBodies(t *testing.T) {
	s := newTestServer(t, "")
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/refugees/blocks", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/refugees/blocks", "{\"name\":\"\xff\xfe\"}").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":999,"id":1}`).Code)

	l, err := s.registry.Get("refugees")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestVitalsSchema(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodPost, "/api/v1/health/blocks", `{"heart_rate": 80, "blood_pressure": "120/80", "temperature": 37.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	bad := []string{
		`{"heart_rate": 300, "blood_pressure": "120/80", "temperature": 37.5}`,
		`{"heart_rate": 80, "blood_pressure": "high", "temperature": 37.5}`,
		`{"heart_rate": 80, "blood_pressure": "120/80", "temperature": 45}`,
		`{"blood_pressure": "120/80", "temperature": 37.5}`,
	}
	for _, body := range bad {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/health/blocks", body).Code, body)
	}

	// the refugees ledger has no schema
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"heart_rate": 300}`).Code)
}

func TestUnknownLedger(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(http.MethodGet, "/api/v1/payroll/blocks", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "refugees")
}

func TestWritesRequireToken(t *testing.T) {
	s := newTestServer(t, testToken)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":1}`).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":1}`, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodDelete, "/api/v1/refugees/blocks", "").Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":1}`, "Authorization", "Bearer "+testToken).Code)
}

func TestReadsRequireToken(t *testing.T) {
	s := newTestServer(t, testToken)
	reads := []string{
		"/api/v1/refugees/blocks",
		"/api/v1/refugees/blocks/latest",
		"/api/v1/refugees/blocks/index/0",
		"/api/v1/refugees/records",
		"/api/v1/refugees/records/1",
		"/api/v1/refugees/validate",
		"/api/v1/refugees/stream",
	}
	for _, path := range reads {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "").Code, path)
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", "Authorization", "Bearer wrong").Code, path)
	}

	w := s.do(http.MethodGet, "/api/v1/refugees/blocks", "", "Authorization", "Bearer "+testToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// health stays open for load balancers
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
}

func TestOpenReadsWhenDisabled(t *testing.T) {
	s := newTestServerWith(t, Settings{AuthToken: testToken, AuthReads: false})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/refugees/validate", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/refugees/blocks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":1}`).Code)
}

func TestReset(t *testing.T) {
	s := newTestServer(t, testToken)
	auth := []string{"Authorization", "Bearer " + testToken}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/refugees/blocks", `{"id":1}`, auth...).Code)

	w := s.do(http.MethodDelete, "/api/v1/refugees/blocks", "", auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decode[models.Block](t, w).Index)

	w = s.do(http.MethodGet, "/api/v1/refugees/blocks", "", auth...)
	assert.Len(t, decode[[]models.Block](t, w), 1)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "")
	w := s.do(http.MethodOptions, "/api/v1/refugees/blocks", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStreamDeliversAppendedBlocks(t *testing.T) {
	s := newTestServer(t, "")
	srv := httptest.NewServer(s.router.Engine())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/health/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return s.notifier.Subscribers("health") == 1 }, 2*time.Second, 10*time.Millisecond)

	l, err := s.registry.Get("health")
	require.NoError(t, err)
	block, err := l.Append(map[string]any{"heart_rate": 72, "blood_pressure": "118/76", "temperature": 36.8})
	require.NoError(t, err)

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = v
			break
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, "block", event)

	var got models.Block
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, block.Hash, got.Hash)
}
