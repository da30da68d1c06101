package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

func TestOAuthHandler(t *testing.T) {
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}

	tests := []struct {
		name        string
		query       string
		exchangeErr error
		wantStatus  int
		wantErr     error
	}{
		{"success", "?state=s3cret&code=abc", nil, http.StatusOK, nil},
		{"state mismatch", "?state=wrong&code=abc", nil, http.StatusBadRequest, shared.ErrAuthFailed},
		{"user denied", "?state=s3cret&error=access_denied", nil, http.StatusBadRequest, shared.ErrAuthFailed},
		{"exchange failure", "?state=s3cret&code=abc", shared.ErrAuthFailed, http.StatusInternalServerError, shared.ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchanger := &fakeExchanger{token: token, err: tt.exchangeErr}
			handler := NewOAuthHandler(exchanger, "s3cret", "")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			result := <-handler.Result()
			if tt.wantErr != nil {
				if !errors.Is(result.Error(), tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, result.Error())
				}
				return
			}
			if result.Error() != nil || result.Token != token {
				t.Errorf("unexpected result %+v", result)
			}
			if len(exchanger.codes) != 1 || exchanger.codes[0] != "abc" {
				t.Errorf("unexpected exchanged codes %v", exchanger.codes)
			}
		})
	}

	t.Run("second callback is rejected", func(t *testing.T) {
		handler := NewOAuthHandler(&fakeExchanger{token: token}, "s3cret", "/cb")
		if routes := handler.Routes(); len(routes) != 1 || routes[0] != "/cb" {
			t.Fatalf("unexpected routes %v", routes)
		}

		for i, want := range []int{http.StatusOK, http.StatusBadRequest} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=s3cret&code=abc", nil))
			if rec.Code != want {
				t.Errorf("call %d: expected status %d, got %d", i+1, want, rec.Code)
			}
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "ok")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("unexpected GET response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("logging omits the query string", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		output := buf.String()
		if !strings.Contains(output, "/callback") || !strings.Contains(output, "418") {
			t.Errorf("unexpected log output %q", output)
		}
		if strings.Contains(output, "secret") {
			t.Errorf("query string leaked into logs: %q", output)
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		uri     string
		addr    string
		path    string
		wantErr bool
	}{
		{"http://127.0.0.1:8888/callback", "127.0.0.1:8888", "/callback", false},
		{"http://localhost/cb", "localhost:80", "/cb", false},
		{"http://127.0.0.1:9000", "127.0.0.1:9000", "/", false},
		{"https://example.com/callback", "", "", true},
		{"not a uri", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			addr, path, err := CallbackAddr(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CallbackAddr failed: %v", err)
			}
			if addr != tt.addr || path != tt.path {
				t.Errorf("got %s %s, want %s %s", addr, path, tt.addr, tt.path)
			}
		})
	}
}

func TestCallbackServer(t *testing.T) {
	logger := log.New(io.Discard)
	token := &oauth2.Token{AccessToken: "access"}

	t.Run("delivers the token", func(t *testing.T) {
		srv := NewCallbackServer("127.0.0.1:0", "/callback", &fakeExchanger{token: token}, "state", logger)
		if err := srv.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=state&code=abc", srv.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		got, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if got.AccessToken != "access" {
			t.Errorf("unexpected token %+v", got)
		}
	})

	t.Run("times out", func(t *testing.T) {
		srv := NewCallbackServer("127.0.0.1:0", "/callback", &fakeExchanger{token: token}, "state", logger)
		if err := srv.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		_, err := srv.Wait(context.Background(), 10*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		srv := NewCallbackServer("127.0.0.1:0", "/callback", &fakeExchanger{token: token}, "state", logger)
		if err := srv.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := srv.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("rejected state", func(t *testing.T) {
		srv := NewCallbackServer("127.0.0.1:0", "/callback", &fakeExchanger{token: token}, "state", logger)
		if err := srv.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=forged&code=abc", srv.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		if _, err := srv.Wait(context.Background(), 5*time.Second); !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
	})
}
