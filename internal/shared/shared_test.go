package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"syscall"
	"testing"

	"golang.org/x/oauth2"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		fatal     bool
		retryable bool
	}{
		{"nil", nil, false, false},
		{"auth", fmt.Errorf("%w: token revoked", ErrAuthFailed), true, false},
		{"unavailable", fmt.Errorf("%w: connection refused", ErrServiceUnavailable), true, true},
		{"rate limited", fmt.Errorf("search: %w", ErrRateLimited), false, true},
		{"transient", ErrTransient, false, true},
		{"corrupt state", ErrStateCorruption, true, false},
		{"state write", fmt.Errorf("%w: disk full", ErrStateWrite), true, false},
		{"no token", ErrNotAuthenticated, true, false},
		{"canceled", context.Canceled, true, false},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), false, true},
		{"plain", errors.New("bad request"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{200, nil},
		{204, nil},
		{401, ErrAuthFailed},
		{403, ErrAuthFailed},
		{404, ErrPlaylistNotFound},
		{429, ErrRateLimited},
		{500, ErrTransient},
		{502, ErrTransient},
		{503, ErrServiceUnavailable},
		{400, ErrAPIRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			if got := ClassifyStatus(tt.code); got != tt.want {
				t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"connection refused", &net.OpError{Op: "read", Err: syscall.ECONNREFUSED}, ErrServiceUnavailable},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("no route to host")}, ErrServiceUnavailable},
		{"unknown host", &net.DNSError{Err: "no such host", Name: "proxy.invalid"}, ErrServiceUnavailable},
		{"connection reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, ErrTransient},
		{"unexpected EOF", fmt.Errorf("Get \"http://127.0.0.1/search\": %w", io.EOF), ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTransport(tt.err)
			if got != tt.want {
				t.Errorf("ClassifyTransport() = %v, want %v", got, tt.want)
			}
			if tt.want == ErrTransient && IsFatal(got) {
				t.Error("transport error on an open connection must not be fatal")
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultRetryConfig().NoWait()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := RetryWithBackoff(ctx, cfg, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", ErrRateLimited
			}
			return "ok", nil
		}, "search")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" || calls != 3 {
			t.Errorf("got %q after %d calls, want ok after 3", got, calls)
		}
	})

	t.Run("never retries auth errors", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, cfg, func(context.Context) error {
			calls++
			return fmt.Errorf("%w: 401", ErrAuthFailed)
		}, "add")
		if !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("wraps the last error when exhausted", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, cfg, func(context.Context) error {
			calls++
			return ErrTransient
		}, "add")
		if !errors.Is(err, ErrTransient) {
			t.Errorf("expected ErrTransient in chain, got %v", err)
		}
		if calls != cfg.MaxAttempts {
			t.Errorf("expected %d calls, got %d", cfg.MaxAttempts, calls)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Retry(cctx, cfg, func(context.Context) error { return ErrTransient }, "search")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "token.json")

	if _, err := LoadToken(path); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated for missing token, got %v", err)
	}

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	if err := SaveToken(path, token); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	loaded, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken failed: %v", err)
	}
	if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
		t.Errorf("unexpected token %+v", loaded)
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
	if GenerateID() == GenerateID() {
		t.Error("expected distinct ids")
	}
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		url     string
		wantBin string
		wantErr bool
	}{
		{"darwin", "https://accounts.spotify.com/authorize", "open", false},
		{"linux", "http://127.0.0.1:8888/callback", "xdg-open", false},
		{"windows", "https://example.com", "rundll32", false},
		{"plan9", "https://example.com", "", true},
		{"linux", "file:///etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+" "+tt.url, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.Base(cmd.Path) != tt.wantBin && cmd.Args[0] != tt.wantBin {
				t.Errorf("expected %s, got %s", tt.wantBin, cmd.Path)
			}
		})
	}
}
