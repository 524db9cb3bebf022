package tfl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/adapters/metrics"
	"github.com/tb8/tb8/adapters/tfl"
	"github.com/tb8/tb8/domain/apperr"
)

const testKey = "s3cr3t-key"

func newClient(t *testing.T, url string) *tfl.Client {
	t.Helper()
	c, err := tfl.NewClient(tfl.Config{
		BaseURL: url,
		AppID:   "tb8-test",
		AppKey:  testKey,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func asAppErr(t *testing.T, err error) *apperr.Error {
	t.Helper()
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v (%T), want *apperr.Error", err, err)
	}
	return e
}

func TestNewClient(t *testing.T) {
	if _, err := tfl.NewClient(tfl.Config{AppKey: testKey}); err != nil {
		t.Errorf("NewClient() with defaults error = %v", err)
	}
	if _, err := tfl.NewClient(tfl.Config{}); err == nil {
		t.Error("NewClient() without app key should fail")
	}
	if _, err := tfl.NewClient(tfl.Config{BaseURL: "not a url", AppKey: testKey}); err == nil {
		t.Error("NewClient() with relative base URL should fail")
	}
}

func TestClient_RequestShape(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	if _, err := c.FetchArrivalsByLineAtStop(ctx, "victoria", "940GZZLUOXC"); err != nil {
		t.Fatalf("FetchArrivalsByLineAtStop() error = %v", err)
	}

	if got.Method != http.MethodGet {
		t.Errorf("Method = %s, want GET", got.Method)
	}
	if got.URL.Path != "/Line/victoria/Arrivals/940GZZLUOXC" {
		t.Errorf("Path = %s", got.URL.Path)
	}
	if got.URL.Query().Get("app_id") != "tb8-test" {
		t.Errorf("app_id = %s, want tb8-test", got.URL.Query().Get("app_id"))
	}
	if got.URL.Query().Get("app_key") != testKey {
		t.Errorf("app_key = %s, want %s", got.URL.Query().Get("app_key"), testKey)
	}
	if got.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %s, want application/json", got.Header.Get("Accept"))
	}
	if got.Header.Get("X-Request-ID") != "req-42" {
		t.Errorf("X-Request-ID = %s, want req-42", got.Header.Get("X-Request-ID"))
	}
}

func TestClient_Paths(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, `[{"id":"victoria"}]`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	ctx := context.Background()

	calls := []func() error{
		func() error { _, err := c.FetchLines(ctx); return err },
		func() error { _, err := c.FetchLineByID(ctx, "victoria"); return err },
		func() error { _, err := c.FetchLinesByMode(ctx, "tube"); return err },
		func() error { _, err := c.FetchArrivalsByLine(ctx, "victoria"); return err },
		func() error { _, err := c.FetchDisruptionsByLine(ctx, "victoria"); return err },
		func() error { _, err := c.FetchDisruptionsByMode(ctx, "dlr"); return err },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
	}

	want := []string{
		"/Line",
		"/Line/victoria",
		"/Line/Mode/tube",
		"/Line/victoria/Arrivals",
		"/Line/victoria/Disruption",
		"/Line/Mode/dlr/Disruption",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestClient_UpstreamServerError(t *testing.T) {
	srv, _ := serve(t, http.StatusInternalServerError, "service unavailable")
	c := newClient(t, srv.URL)

	_, err := c.FetchLines(context.Background())
	e := asAppErr(t, err)

	if e.Kind != apperr.KindUpstreamHTTP {
		t.Errorf("Kind = %s, want upstream_http", e.Kind)
	}
	if e.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", e.StatusCode())
	}
	if !strings.Contains(e.Message, "service unavailable") {
		t.Errorf("Message = %q, want upstream body", e.Message)
	}
	if !strings.Contains(e.Message, "500") {
		t.Errorf("Message = %q, want status code", e.Message)
	}
}

func TestClient_UpstreamNotFound(t *testing.T) {
	srv, _ := serve(t, http.StatusNotFound, `{"message":"The following line ids are not recognised: nope"}`)
	c := newClient(t, srv.URL)

	_, err := c.FetchLineByID(context.Background(), "nope")
	e := asAppErr(t, err)

	if e.Kind != apperr.KindNotFound {
		t.Errorf("Kind = %s, want not_found", e.Kind)
	}
	if e.StatusCode() != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, want 404", e.StatusCode())
	}
}

func TestClient_DeserializationPath(t *testing.T) {
	body := `[{"stationName":"Oxford Circus"},{"stationName":"Green Park"},{"stationName":42}]`
	srv, _ := serve(t, http.StatusOK, body)
	c := newClient(t, srv.URL)

	_, err := c.FetchArrivalsByLine(context.Background(), "victoria")
	e := asAppErr(t, err)

	if e.Kind != apperr.KindDeserialization {
		t.Fatalf("Kind = %s, want deserialization", e.Kind)
	}
	if e.Path != "[2].stationName" {
		t.Errorf("Path = %s, want [2].stationName", e.Path)
	}
	if !strings.HasPrefix(e.Message, "JSON deserialization failed at '[2].stationName': ") {
		t.Errorf("Message = %q", e.Message)
	}
	if string(e.RawBody) != body {
		t.Errorf("RawBody = %s, want full body", e.RawBody)
	}
	if detail, ok := e.Detail(); !ok || detail != "42" {
		t.Errorf("Detail() = %q, %v; want 42, true", detail, ok)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `<html>maintenance</html>`)
	c := newClient(t, srv.URL)

	_, err := c.FetchLines(context.Background())
	e := asAppErr(t, err)

	if e.Kind != apperr.KindDeserialization {
		t.Fatalf("Kind = %s, want deserialization", e.Kind)
	}
	if e.Path != "." {
		t.Errorf("Path = %s, want .", e.Path)
	}
	if detail, _ := e.Detail(); detail != "Invalid JSON" {
		t.Errorf("Detail() = %q, want Invalid JSON", detail)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url)
	_, err := c.FetchLines(context.Background())
	e := asAppErr(t, err)

	if e.Kind != apperr.KindUpstreamTransport {
		t.Errorf("Kind = %s, want upstream_transport", e.Kind)
	}
	if e.StatusCode() != http.StatusBadGateway {
		t.Errorf("StatusCode() = %d, want 502", e.StatusCode())
	}
	if !strings.HasPrefix(e.Message, "TfL API request failed: ") {
		t.Errorf("Message = %q", e.Message)
	}
	if strings.Contains(e.Message, testKey) {
		t.Errorf("Message leaks app key: %q", e.Message)
	}
}

func TestClient_LineByID_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr apperr.Kind
	}{
		{"single object", `{"id":"victoria","name":"Victoria","modeName":"tube"}`, 1, ""},
		{"array", `[{"id":"victoria"},{"id":"central"}]`, 2, ""},
		{"empty array", `[]`, 0, apperr.KindNotFound},
		{"bad object", `{"id":7}`, 0, apperr.KindDeserialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, tt.body)
			c := newClient(t, srv.URL)

			lines, err := c.FetchLineByID(context.Background(), "victoria")
			if tt.wantErr != "" {
				if !apperr.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want kind %s", err, tt.wantErr)
				}
				if lines != nil {
					t.Errorf("lines = %v, want nil on failure", lines)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchLineByID() error = %v", err)
			}
			if len(lines) != tt.wantLen {
				t.Errorf("len(lines) = %d, want %d", len(lines), tt.wantLen)
			}
			if lines[0].ID != "victoria" {
				t.Errorf("lines[0].ID = %s, want victoria", lines[0].ID)
			}
		})
	}
}

func TestClient_EmptyIdentifier(t *testing.T) {
	srv, calls := serve(t, http.StatusOK, `[]`)
	c := newClient(t, srv.URL)

	_, err := c.FetchArrivalsByLine(context.Background(), "")
	if !apperr.Is(err, apperr.KindParse) {
		t.Errorf("error = %v, want parse error", err)
	}
	_, err = c.FetchArrivalsByLineAtStop(context.Background(), "victoria", "")
	if !apperr.Is(err, apperr.KindParse) {
		t.Errorf("error = %v, want parse error", err)
	}
	if calls.Load() != 0 {
		t.Errorf("upstream calls = %d, want 0", calls.Load())
	}
}

func TestClient_NullBodyIsEmpty(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `null`)
	c := newClient(t, srv.URL)

	got, err := c.FetchDisruptionsByMode(context.Background(), "tube")
	if err != nil {
		t.Fatalf("FetchDisruptionsByMode() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got = %v, want empty non-nil slice", got)
	}
}

func TestClient_Concurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo the line id back so each caller can check it got its own answer.
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/Line/"), "/Arrivals")
		fmt.Fprintf(w, `[{"lineId":%q}]`, id)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("line-%d", i)
			got, err := c.FetchArrivalsByLine(context.Background(), id)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 1 || got[0].LineID != id {
				errs <- fmt.Errorf("call %d got %+v", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	srv, _ := serve(t, http.StatusForbidden, "")
	c := newClient(t, srv.URL)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil for any response", err)
	}

	srv.Close()
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail when upstream is down")
	}
}

func TestClient_Metrics(t *testing.T) {
	srv, _ := serve(t, http.StatusInternalServerError, "boom")

	reg := prometheus.NewRegistry()
	c, err := tfl.NewClient(tfl.Config{
		BaseURL: srv.URL,
		AppKey:  testKey,
		Logger:  zerolog.Nop(),
		Metrics: metrics.NewWithRegistry(reg),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, _ = c.FetchLines(context.Background())

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				found[f.GetName()+"/"+l.GetName()+"="+l.GetValue()] = true
			}
		}
	}
	for _, want := range []string{
		"tb8_upstream_duration_seconds/endpoint=/Line",
		"tb8_upstream_duration_seconds/status=5xx",
		"tb8_upstream_errors_total/kind=upstream_http",
	} {
		if !found[want] {
			t.Errorf("missing series %s", want)
		}
	}
}
