package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/chompy/internal/infrastructure/config"
	"github.com/nerrad567/chompy/internal/infrastructure/logging"
	"github.com/nerrad567/chompy/internal/relay"
)

type fakePresence struct {
	mu     sync.Mutex
	online bool
	calls  int
}

func (p *fakePresence) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.online
}

type fakeDispatcher struct {
	mu      sync.Mutex
	amounts []float64
	err     error
	panic   any
}

func (d *fakeDispatcher) Dispense(_ context.Context, amount float64) (relay.Command, error) {
	if d.panic != nil {
		panic(d.panic)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return relay.Command{}, d.err
	}
	d.amounts = append(d.amounts, amount)
	return relay.NewCommand(amount), nil
}

func (d *fakeDispatcher) sent() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.amounts...)
}

func testDispenseConfig() config.DispenseConfig {
	return config.DispenseConfig{DefaultSeconds: 0.5, MaxSeconds: 30, RejectOutOfRange: true}
}

// testServer creates a Server wired to fakes.
func testServer(t *testing.T, online bool) (*Server, *fakePresence, *fakeDispatcher) {
	t.Helper()

	presence := &fakePresence{online: online}
	dispatcher := &fakeDispatcher{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Dispense:   testDispenseConfig(),
		Logger:     logging.Discard(),
		Presence:   presence,
		Dispatcher: dispatcher,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, presence, dispatcher
}

// do sends a request through the full router and middleware stack.
func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDeps(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no logger", deps: Deps{Presence: &fakePresence{}, Dispatcher: &fakeDispatcher{}}},
		{name: "no presence", deps: Deps{Logger: logging.Discard(), Dispatcher: &fakeDispatcher{}}},
		{name: "no dispatcher", deps: Deps{Logger: logging.Discard(), Presence: &fakePresence{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestStatus(t *testing.T) {
	for _, online := range []bool{true, false} {
		t.Run(fmt.Sprint(online), func(t *testing.T) {
			srv, _, dispatcher := testServer(t, online)

			rec := do(t, srv, http.MethodGet, "/status")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			want := fmt.Sprintf(`{"online":%v}`, online)
			if rec.Body.String() != want {
				t.Errorf("body = %q, want %q", rec.Body.String(), want)
			}
			if len(dispatcher.sent()) != 0 {
				t.Error("/status sent a command")
			}
		})
	}
}

func TestDispense_Offline(t *testing.T) {
	srv, _, dispatcher := testServer(t, false)

	rec := do(t, srv, http.MethodPost, "/dispense?amount=2")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Body.String() != "device not connected" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(dispatcher.sent()) != 0 {
		t.Error("offline dispense reached the dispatcher")
	}
}

func TestDispense_Online(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   float64
	}{
		{name: "explicit amount", target: "/dispense?amount=2.5", want: 2.5},
		{name: "default amount", target: "/dispense", want: 0.5},
		{name: "garbage uses default", target: "/dispense?amount=lots", want: 0.5},
		{name: "empty uses default", target: "/dispense?amount=", want: 0.5},
		{name: "NaN uses default", target: "/dispense?amount=NaN", want: 0.5},
		{name: "upper bound", target: "/dispense?amount=30", want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, dispatcher := testServer(t, true)

			rec := do(t, srv, http.MethodGet, tt.target)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			sent := dispatcher.sent()
			if len(sent) != 1 || sent[0] != tt.want {
				t.Errorf("dispatched %v, want [%v]", sent, tt.want)
			}
		})
	}
}

func TestDispense_OutOfRange(t *testing.T) {
	for _, amount := range []string{"0", "-1", "30.5", "1e9"} {
		t.Run(amount, func(t *testing.T) {
			srv, _, dispatcher := testServer(t, true)

			rec := do(t, srv, http.MethodPost, "/dispense?amount="+amount)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if len(dispatcher.sent()) != 0 {
				t.Error("out-of-range amount was dispatched")
			}
		})
	}
}

func TestDispense_OutOfRangeForwardedWhenAllowed(t *testing.T) {
	srv, _, dispatcher := testServer(t, true)
	srv.dispenseCfg.RejectOutOfRange = false

	rec := do(t, srv, http.MethodPost, "/dispense?amount=-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sent := dispatcher.sent(); len(sent) != 1 || sent[0] != -1 {
		t.Errorf("dispatched %v, want [-1]", sent)
	}
}

func TestDispense_DispatchErrorIs500(t *testing.T) {
	srv, _, dispatcher := testServer(t, true)
	dispatcher.err = errors.New("broker unreachable")

	rec := do(t, srv, http.MethodPost, "/dispense")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Body.String() != "broker unreachable" {
		t.Errorf("body = %q, want the error text", rec.Body.String())
	}
}

func TestPanicIs500(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "string", value: "motor on fire", want: "motor on fire"},
		{name: "error", value: errors.New("nil map"), want: "nil map"},
		{name: "other", value: 42, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, dispatcher := testServer(t, true)
			dispatcher.panic = tt.value

			rec := do(t, srv, http.MethodPost, "/dispense")

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if rec.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestRoot(t *testing.T) {
	srv, _, _ := testServer(t, false)

	rec := do(t, srv, http.MethodGet, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<title>Chompy</title>") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	for _, target := range []string{"/nope", "/status/extra", "/dispense/now", "/index.html"} {
		t.Run(target, func(t *testing.T) {
			srv, presence, dispatcher := testServer(t, true)

			rec := do(t, srv, http.MethodGet, target)

			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if rec.Body.String() != "Not found" {
				t.Errorf("body = %q, want %q", rec.Body.String(), "Not found")
			}
			if presence.calls != 0 || len(dispatcher.sent()) != 0 {
				t.Error("unknown route had side effects")
			}
		})
	}
}

func TestNonStandardMethods(t *testing.T) {
	tests := []struct {
		method string
		target string
		want   int
	}{
		{method: "PURGE", target: "/status", want: http.StatusOK},
		{method: "PROPFIND", target: "/", want: http.StatusOK},
		{method: "PURGE", target: "/nope", want: http.StatusNotFound},
		{method: "BREW", target: "/status/extra", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			srv, _, _ := testServer(t, true)

			rec := do(t, srv, tt.method, tt.target)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID not set")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	srv, _, _ := testServer(t, true)

	rec := do(t, srv, http.MethodGet, "/status")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "from-client")
	rec = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "from-client" {
		t.Errorf("X-Request-ID = %q, want from-client", got)
	}
}

func TestServer_StartClose(t *testing.T) {
	srv, _, dispatcher := testServer(t, true)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start expected error")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if srv.server.ReadTimeout != 5*time.Second || srv.server.WriteTimeout != 5*time.Second || srv.server.IdleTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v/%v, want 5s each",
			srv.server.ReadTimeout, srv.server.WriteTimeout, srv.server.IdleTimeout)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post("http://"+srv.Addr()+"/dispense?amount=1.5", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /dispense: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, body)
	}
	if sent := dispatcher.sent(); len(sent) != 1 || sent[0] != 1.5 {
		t.Errorf("dispatched %v, want [1.5]", sent)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
