package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override credential settings from config.toml.
const (
	EnvSpotifyClientID     = "SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvSpotifyRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvYouTubeAuthFile     = "YTMUSIC_AUTH_FILE"
	EnvYouTubeProxyURL     = "YTMUSIC_PROXY_URL"
)

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Missing files are ignored so that plain environment variables keep working. Existing variables are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, path, err)
		}
	}
	return nil
}

// ApplyEnv copies credential overrides from the environment into c.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Spotify.ClientID, EnvSpotifyClientID)
	set(&c.Credentials.Spotify.ClientSecret, EnvSpotifyClientSecret)
	set(&c.Credentials.Spotify.RedirectURI, EnvSpotifyRedirectURI)
	set(&c.Credentials.YouTube.AuthFile, EnvYouTubeAuthFile)
	set(&c.Credentials.YouTube.ProxyURL, EnvYouTubeProxyURL)
}
