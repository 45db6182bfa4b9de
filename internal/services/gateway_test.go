package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acs/internal/shared"
	tu "github.com/desertthunder/acs/internal/testing"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// authServer rejects requests whose bearer token differs from valid and rotates
// tokens on /auth/refresh.
type authServer struct {
	mu           sync.Mutex
	valid        string
	refreshBody  string
	refreshDelay time.Duration
	refreshCalls atomic.Int32
	dataCalls    atomic.Int32
	lastHeaders  http.Header
}

func (s *authServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastHeaders = r.Header.Clone()
	valid := s.valid
	s.mu.Unlock()

	if r.URL.Path == "/auth/refresh" {
		s.refreshCalls.Add(1)
		time.Sleep(s.refreshDelay)
		if s.refreshBody == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(s.refreshBody))
		return
	}

	s.dataCalls.Add(1)
	if r.Header.Get("Authorization") != "Bearer "+valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"jwt expired"}`))
		return
	}
	w.Write([]byte(`{"totalThreads":3}`))
}

func (s *authServer) headers() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders
}

func newTestGateway(t *testing.T, url string, store TokenStore, hook func(error)) *Gateway {
	t.Helper()
	gw, err := NewGateway(GatewayOpts{
		BaseURL:          url,
		Store:            store,
		Logger:           testLogger(),
		Timeout:          2 * time.Second,
		OnSessionExpired: hook,
	})
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	return gw
}

func TestNewGateway(t *testing.T) {
	t.Run("Missing Base URL", func(t *testing.T) {
		if _, err := NewGateway(GatewayOpts{}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Relative Base URL", func(t *testing.T) {
		if _, err := NewGateway(GatewayOpts{BaseURL: "/api"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Endpoint Joins Paths", func(t *testing.T) {
		gw, err := NewGateway(GatewayOpts{BaseURL: "http://example.com/api/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := gw.endpoint("/threads", nil); got != "http://example.com/api/threads" {
			t.Errorf("unexpected endpoint %q", got)
		}
	})
}

func TestGatewaySend(t *testing.T) {
	t.Run("Attaches Bearer And Request ID", func(t *testing.T) {
		srv := &authServer{valid: "good"}
		server := httptest.NewServer(srv)
		defer server.Close()

		gw := newTestGateway(t, server.URL, NewMemoryTokenStore(&oauth2.Token{AccessToken: "good"}), nil)

		var out struct {
			TotalThreads int `json:"totalThreads"`
		}
		if err := gw.Send(context.Background(), Request{Path: "/threads/summary"}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.TotalThreads != 3 {
			t.Errorf("expected decoded body, got %+v", out)
		}
		if srv.headers().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		if srv.headers().Get("Content-Type") != "application/json" {
			t.Error("expected JSON content type")
		}
	})

	t.Run("SkipAuth Omits Bearer", func(t *testing.T) {
		srv := &authServer{valid: "good"}
		server := httptest.NewServer(srv)
		defer server.Close()

		gw := newTestGateway(t, server.URL, NewMemoryTokenStore(&oauth2.Token{AccessToken: "good"}), nil)
		err := gw.Send(context.Background(), Request{Path: "/threads/summary", SkipAuth: true}, nil)
		if !IsCategory(err, CategoryUnauthorized) {
			t.Errorf("expected unauthorized without retry, got %v", err)
		}
		if srv.refreshCalls.Load() != 0 {
			t.Error("expected no refresh for SkipAuth requests")
		}
		if srv.headers().Get("Authorization") != "" {
			t.Error("expected no Authorization header")
		}
	})

	t.Run("Refreshes Once And Retries", func(t *testing.T) {
		srv := &authServer{valid: "new", refreshBody: `{"tokens":{"access":"new","refresh":"r2"}}`}
		server := httptest.NewServer(srv)
		defer server.Close()

		store := NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", RefreshToken: "r1"})
		gw := newTestGateway(t, server.URL, store, nil)

		if err := gw.Send(context.Background(), Request{Path: "/threads/summary"}, nil); err != nil {
			t.Fatalf("expected transparent renewal, got %v", err)
		}
		if srv.dataCalls.Load() != 2 {
			t.Errorf("expected original and retried request, got %d", srv.dataCalls.Load())
		}
		token, _ := store.Token()
		if token.AccessToken != "new" || token.RefreshToken != "r2" {
			t.Errorf("expected rotated tokens, got %+v", token)
		}
	})

	t.Run("Flat Refresh Response Without Rotation", func(t *testing.T) {
		srv := &authServer{valid: "new", refreshBody: `{"accessToken":"new"}`}
		server := httptest.NewServer(srv)
		defer server.Close()

		store := NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", RefreshToken: "r1"})
		gw := newTestGateway(t, server.URL, store, nil)

		if err := gw.Send(context.Background(), Request{Path: "/threads/summary"}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		token, _ := store.Token()
		if token.AccessToken != "new" || token.RefreshToken != "r1" {
			t.Errorf("expected new access and kept refresh token, got %+v", token)
		}
	})

	t.Run("Single Flight Across Concurrent Requests", func(t *testing.T) {
		srv := &authServer{
			valid:        "new",
			refreshBody:  `{"tokens":{"access":"new","refresh":"r2"}}`,
			refreshDelay: 50 * time.Millisecond,
		}
		server := httptest.NewServer(srv)
		defer server.Close()

		gw := newTestGateway(t, server.URL, NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", RefreshToken: "r1"}), nil)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- gw.Send(context.Background(), Request{Path: "/threads/summary"}, nil)
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("expected every request to succeed, got %v", err)
			}
		}
		if srv.refreshCalls.Load() != 1 {
			t.Errorf("expected exactly one refresh call, got %d", srv.refreshCalls.Load())
		}
	})

	t.Run("Second 401 Expires Session", func(t *testing.T) {
		srv := &authServer{valid: "never", refreshBody: `{"tokens":{"access":"new","refresh":"r2"}}`}
		server := httptest.NewServer(srv)
		defer server.Close()

		var hooked atomic.Int32
		store := NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", RefreshToken: "r1"})
		gw := newTestGateway(t, server.URL, store, func(error) { hooked.Add(1) })

		err := gw.Send(context.Background(), Request{Path: "/threads/summary"}, nil)
		if !errors.Is(err, shared.ErrSessionExpired) {
			t.Fatalf("expected session expired, got %v", err)
		}
		if srv.refreshCalls.Load() != 1 || srv.dataCalls.Load() != 2 {
			t.Errorf("expected one refresh and one retry, got %d refreshes and %d requests",
				srv.refreshCalls.Load(), srv.dataCalls.Load())
		}
		if hooked.Load() != 1 {
			t.Errorf("expected expiry hook once, got %d", hooked.Load())
		}
		if token, _ := store.Token(); token != nil {
			t.Error("expected credentials purged")
		}
	})

	t.Run("Refresh Rejected Expires Session", func(t *testing.T) {
		srv := &authServer{valid: "new"}
		server := httptest.NewServer(srv)
		defer server.Close()

		store := NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", RefreshToken: "r1"})
		gw := newTestGateway(t, server.URL, store, nil)

		err := gw.Send(context.Background(), Request{Path: "/threads/summary"}, nil)
		apiErr, ok := AsAPIError(err)
		if !ok || apiErr.Category != CategorySessionExpired {
			t.Fatalf("expected session expired, got %v", err)
		}
		if apiErr.UserMessage != "Session expired, please login again" {
			t.Errorf("unexpected user message %q", apiErr.UserMessage)
		}
		if token, _ := store.Token(); token != nil {
			t.Error("expected credentials purged")
		}
	})

	t.Run("Other Failures Are Not Retried", func(t *testing.T) {
		for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}))

			gw := newTestGateway(t, server.URL, NewMemoryTokenStore(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}), nil)
			err := gw.Send(context.Background(), Request{Path: "/threads"}, nil)
			server.Close()

			apiErr, ok := AsAPIError(err)
			if !ok || apiErr.Status != status {
				t.Errorf("expected APIError with status %d, got %v", status, err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected a single attempt for %d, got %d", status, calls.Load())
			}
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		gw, _ := NewGateway(GatewayOpts{BaseURL: server.URL, Timeout: 20 * time.Millisecond, Logger: testLogger()})
		err := gw.Send(context.Background(), Request{Path: "/threads"}, nil)
		if !IsCategory(err, CategoryTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
	})

	t.Run("Network Error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		gw := newTestGateway(t, url, nil, nil)
		err := gw.Send(context.Background(), Request{Path: "/threads"}, nil)
		if !IsCategory(err, CategoryNetwork) {
			t.Errorf("expected network error, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
		}, nil)}
		gw, _ := NewGateway(GatewayOpts{BaseURL: "http://example.com", HTTPClient: client, Logger: testLogger()})

		if err := gw.Send(context.Background(), Request{Path: "/threads"}, nil); err == nil {
			t.Error("expected error when body cannot be read")
		}
	})

	t.Run("Undecodable Body", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewRecordingRoundTripper(tu.JSONResponse(200, `not json`))}
		gw, _ := NewGateway(GatewayOpts{BaseURL: "http://example.com", HTTPClient: client, Logger: testLogger()})

		var out map[string]any
		err := gw.Send(context.Background(), Request{Path: "/threads"}, &out)
		if !IsCategory(err, CategoryUnknown) {
			t.Errorf("expected unknown category, got %v", err)
		}
	})
}

func TestNewToken(t *testing.T) {
	t.Run("JWT Expiry", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u1",
			"exp": exp.Unix(),
		}).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}

		token := NewToken(signed, "r")
		if !token.Expiry.Equal(exp) {
			t.Errorf("expected expiry %v, got %v", exp, token.Expiry)
		}
		if token.Type() != "Bearer" {
			t.Errorf("expected bearer type, got %s", token.Type())
		}
	})

	t.Run("Opaque Token", func(t *testing.T) {
		token := NewToken("opaque", "r")
		if !token.Expiry.IsZero() {
			t.Error("expected no expiry for opaque tokens")
		}
	})
}

func TestAuthResponseShapes(t *testing.T) {
	tc := map[string]string{
		"Nested": `{"user":{"_id":"u1","name":"Ada","email":"ada@example.com"},"tokens":{"access":"a","refresh":"r"}}`,
		"Flat":   `{"accessToken":"a","refreshToken":"r"}`,
	}
	for name, body := range tc {
		t.Run(name, func(t *testing.T) {
			var resp authResponse
			if err := json.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			token := resp.token()
			if token == nil || token.AccessToken != "a" || token.RefreshToken != "r" {
				t.Errorf("unexpected token %+v", token)
			}
		})
	}
}
