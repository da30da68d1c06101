package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Exchanger trades an authorization code for a token. Implemented by services.SpotifyService.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthResult is the outcome of one authorization redirect.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler answers the provider's redirect in the authorization code flow.
//
// Only the first request is processed; the state parameter must match the one the flow was started with.
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	path      string
	served    atomic.Bool
	once      sync.Once
	results   chan OAuthResult
}

// NewOAuthHandler creates a handler serving path, "/callback" when empty.
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.served.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	token, status, err := h.authorize(r)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, http.StatusText(status)+": "+publicReason(status), status)
		return
	}

	h.Send(OAuthResult{Token: token})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, successPage)
}

// authorize validates the redirect and exchanges its code, returning the HTTP status to answer with on failure.
func (h *OAuthHandler) authorize(r *http.Request) (*oauth2.Token, int, error) {
	query := r.URL.Query()

	if query.Get("state") != h.state {
		return nil, http.StatusBadRequest, fmt.Errorf("%w: state parameter does not match", shared.ErrAuthFailed)
	}

	code := query.Get("code")
	if code == "" {
		reason := query.Get("error")
		if desc := query.Get("error_description"); desc != "" {
			reason += ": " + desc
		}
		return nil, http.StatusBadRequest, fmt.Errorf("%w: provider denied access (%s)", shared.ErrAuthFailed, reason)
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, http.StatusOK, nil
}

func publicReason(status int) string {
	if status == http.StatusInternalServerError {
		return "token exchange failed, see the terminal for details"
	}
	return "authorization was not granted"
}

// Send delivers result to [OAuthHandler.Result]. Only the first call has any effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>ytmigrate</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh;">
  <h1 style="color: #1DB954;">Spotify access granted</h1>
  <p>You can close this tab and return to the terminal.</p>
</body>
</html>
`
