package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/server"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const defaultAuthTimeout = 2 * time.Minute

func setupOAuthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup-oauth",
		Usage: "Authorize access to Spotify or YouTube Music",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Provider to authorize: spotify or youtube",
				Value: "spotify",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the Spotify callback",
				Value: defaultAuthTimeout,
			},
			&cli.StringFlag{
				Name:  "curl",
				Usage: "YouTube Music request copied from the browser as cURL",
			},
			&cli.StringFlag{
				Name:  "curl-file",
				Usage: "File containing the copied cURL command",
			},
		},
		Action: r.SetupOAuth,
	}
}

func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write a config.toml from the built-in template",
		Action: r.Init,
	}
}

// SetupOAuth dispatches to the provider-specific authorization flow.
func (r *Runner) SetupOAuth(ctx context.Context, cmd *cli.Command) error {
	switch provider := strings.ToLower(cmd.String("provider")); provider {
	case "spotify":
		return r.setupSpotify(ctx, cmd.Duration("timeout"))
	case "youtube", "ytmusic":
		return r.setupYouTube(ctx, cmd.String("curl"), cmd.String("curl-file"))
	default:
		return fmt.Errorf("%w: unknown provider %q (want spotify or youtube)", shared.ErrInvalidArgument, provider)
	}
}

// redirectURI returns the configured redirect URI, or one built from the [server] section.
func (r *Runner) redirectURI() string {
	if uri := r.config.Credentials.Spotify.RedirectURI; uri != "" {
		return uri
	}
	host := r.config.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s/callback", net.JoinHostPort(host, strconv.Itoa(r.config.Server.Port)))
}

// setupSpotify performs the authorization code flow.
//
// Starts a local HTTP server, opens browser for user authorization, and saves the exchanged token.
func (r *Runner) setupSpotify(ctx context.Context, timeout time.Duration) error {
	creds := &r.config.Credentials.Spotify
	if unset(creds.ClientID) || unset(creds.ClientSecret) {
		return fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in .env or config.toml", shared.ErrMissingCredentials)
	}
	creds.RedirectURI = r.redirectURI()

	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	addr, path, err := server.CallbackAddr(creds.RedirectURI)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	srv := server.NewCallbackServer(addr, path, spotify, state, r.logger)
	if err := srv.Start(); err != nil {
		return err
	}

	authURL := spotify.GetAuthURL(state)
	r.writePlain("Opening browser for Spotify authorization...\n")
	r.writePlain("If the browser does not open, visit:\n%s\n", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
	}

	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}
	token, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	if err := shared.SaveToken(creds.TokenPath, token); err != nil {
		return err
	}

	spotify.UseToken(ctx, token)
	if user, err := spotify.UserProfile(ctx); err == nil {
		r.writePlainln("✓ Authorized as %s", user.DisplayName)
	} else {
		r.logger.Warn("authorized, but the profile lookup failed", "error", err)
		r.writePlainln("✓ Authorization successful")
	}
	r.writePlain("✓ Token saved to %s\n", creds.TokenPath)

	return nil
}

// setupYouTube configures YouTube Music authentication from browser headers.
//
// The proxy turns the headers into the auth file named by credentials.youtube.auth_file.
func (r *Runner) setupYouTube(ctx context.Context, curlCmd, curlFile string) error {
	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var headers *shared.CurlHeaders
	var err error
	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
	} else {
		headers, err = shared.ParseCurlCommand([]byte(curlCmd))
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}
	if err := headers.Validate(); err != nil {
		return err
	}

	youtube, err := r.youtubeService(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("sending browser headers to proxy", "headers", len(headers.Headers))
	if err := youtube.SetupAuth(ctx, headers.ToHeadersRaw()); err != nil {
		return fmt.Errorf("setup request failed: %w", err)
	}

	r.writePlain("✓ YouTube Music authentication configured\n")
	r.writePlain("Auth file: %s\n", r.config.Credentials.YouTube.AuthFile)

	if err := youtube.Health(ctx); err != nil {
		r.logger.Warn("proxy health check failed after setup", "error", err)
		return nil
	}
	r.writePlain("✓ Proxy accepted the credentials\n")
	return nil
}

// Init writes the example configuration to the --config path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Spotify client id and secret (or set them in .env)\n")
	r.writePlain("2. Run 'ytmigrate setup-oauth --provider spotify'\n")
	r.writePlain("3. Run 'ytmigrate setup-oauth --provider youtube --curl-file request.txt'\n")
	return nil
}
