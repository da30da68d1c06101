// Package server runs the short-lived local HTTP server that receives the Spotify OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method-qualified [http.ServeMux] patterns and wraps each route in its [Middleware]
// chain; the first middleware added runs outermost. [Logging] records one debug line per request.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter
// (CSRF protection), exchanges the code through an [Exchanger] and sends the result through a channel.
// Only the first callback is processed.
//
// # Callback Server
//
// [CallbackServer] binds the handler to the host and port of the configured redirect URI, waits for one
// result (or a timeout, or cancellation) and shuts itself down. The setup-oauth command drives it.
package server
