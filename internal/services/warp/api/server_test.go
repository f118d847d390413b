package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/services/warp/cache"
	"github.com/dasjeff/warppoint/internal/services/warp/ratelimit"
	"github.com/dasjeff/warppoint/internal/services/warp/service"
	"github.com/dasjeff/warppoint/internal/services/warp/storage/sqlite"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "warps.db"), sqlite.Options{DefaultWarpLimit: 5})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	svc := service.New(store, cache.New(), nil, nil, service.Config{Cooldown: time.Second}, nil)
	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}
	server, err := NewServer(svc, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, key string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, payload
}

func createTestWarp(t *testing.T, ts *httptest.Server, owner uuid.UUID, name string) warpResponse {
	t.Helper()
	resp, payload := doRequest(t, ts, http.MethodPost, "/api/warps", testAPIKey, createWarpRequest{
		OwnerID: owner.String(),
		Name:    name,
		World:   "world",
		X:       1, Y: 64, Z: -3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create warp status = %d: %s", resp.StatusCode, payload)
	}
	var created warpResponse
	if err := json.Unmarshal(payload, &created); err != nil {
		t.Fatalf("decode created warp: %v", err)
	}
	return created
}

func TestRequestsWithoutKeyAreRejected(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp, _ := doRequest(t, ts, http.MethodGet, "/api/owners", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/owners", "wrong", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", resp.StatusCode)
	}
}

func TestBadKeyDoesNotConsumeRateLimit(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute, nil)
	ts := newTestServer(t, Config{Limiter: limiter})

	for i := 0; i < 5; i++ {
		resp, _ := doRequest(t, ts, http.MethodGet, "/api/owners", "wrong", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	}
	resp, _ := doRequest(t, ts, http.MethodGet, "/api/owners", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated request throttled: status = %d", resp.StatusCode)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute, nil)
	ts := newTestServer(t, Config{Limiter: limiter})

	for i := 0; i < 2; i++ {
		resp, _ := doRequest(t, ts, http.MethodGet, "/api/owners", testAPIKey, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, resp.StatusCode)
		}
	}
	resp, payload := doRequest(t, ts, http.MethodGet, "/api/owners", testAPIKey, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429: %s", resp.StatusCode, payload)
	}
}

func TestAllowlistBlocksUnknownAddresses(t *testing.T) {
	ts := newTestServer(t, Config{AllowedIPs: []string{"203.0.113.9"}})

	resp, _ := doRequest(t, ts, http.MethodGet, "/api/owners", testAPIKey, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestWarpLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, Config{})
	owner := uuid.New()

	created := createTestWarp(t, ts, owner, "home")
	if created.ID == 0 || created.OwnerID != owner.String() {
		t.Fatalf("created = %+v", created)
	}

	resp, payload := doRequest(t, ts, http.MethodGet, "/api/owners/"+owner.String()+"/warps", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listed struct {
		Warps []warpResponse `json:"warps"`
	}
	if err := json.Unmarshal(payload, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Warps) != 1 || listed.Warps[0].Name != "home" {
		t.Fatalf("warps = %+v", listed.Warps)
	}

	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/owners/"+owner.String()+"/warps/home", testAPIKey, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/owners/"+owner.String()+"/warps/home", testAPIKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDuplicateCreateMapsToConflict(t *testing.T) {
	ts := newTestServer(t, Config{})
	owner := uuid.New()

	createTestWarp(t, ts, owner, "home")
	resp, payload := doRequest(t, ts, http.MethodPost, "/api/warps", testAPIKey, createWarpRequest{
		OwnerID: owner.String(),
		Name:    "HOME",
		World:   "world",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", resp.StatusCode, payload)
	}
	var failure errorResponse
	if err := json.Unmarshal(payload, &failure); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if failure.Error.Code != "WARP_DUPLICATE_NAME" {
		t.Fatalf("code = %s", failure.Error.Code)
	}
}

func TestLimitRoutes(t *testing.T) {
	ts := newTestServer(t, Config{})
	owner := uuid.New()

	resp, payload := doRequest(t, ts, http.MethodPut, "/api/owners/"+owner.String()+"/limit", testAPIKey, setLimitRequest{WarpLimit: 7})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put limit status = %d: %s", resp.StatusCode, payload)
	}

	resp, payload = doRequest(t, ts, http.MethodGet, "/api/owners/"+owner.String()+"/limit", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get limit status = %d", resp.StatusCode)
	}
	var limit limitResponse
	if err := json.Unmarshal(payload, &limit); err != nil {
		t.Fatalf("decode limit: %v", err)
	}
	if limit.WarpLimit != 7 {
		t.Fatalf("limit = %d, want 7", limit.WarpLimit)
	}

	resp, _ = doRequest(t, ts, http.MethodPut, "/api/owners/"+owner.String()+"/limit", testAPIKey, setLimitRequest{WarpLimit: -2})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d, want 400", resp.StatusCode)
	}
}

func TestTransferRoute(t *testing.T) {
	ts := newTestServer(t, Config{})
	source := uuid.New()
	target := uuid.New()

	createTestWarp(t, ts, source, "home")
	resp, payload := doRequest(t, ts, http.MethodPost, "/api/warps/transfer", testAPIKey, transferWarpRequest{
		SourceOwnerID: source.String(),
		TargetOwnerID: target.String(),
		Name:          "home",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("transfer status = %d: %s", resp.StatusCode, payload)
	}

	resp, payload = doRequest(t, ts, http.MethodGet, "/api/owners/"+target.String()+"/warps", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listed struct {
		Warps []warpResponse `json:"warps"`
	}
	if err := json.Unmarshal(payload, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Warps) != 1 {
		t.Fatalf("target warps = %+v, want 1", listed.Warps)
	}
}

func TestInvalidOwnerID(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, payload := doRequest(t, ts, http.MethodGet, "/api/owners/not-a-uuid/warps", testAPIKey, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", resp.StatusCode, payload)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, payload := doRequest(t, ts, http.MethodGet, "/metrics", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(payload) == 0 {
		t.Fatal("empty metrics payload")
	}
}
