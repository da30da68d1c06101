package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Migration   MigrationConfig   `toml:"migration"`
	Target      TargetConfig      `toml:"target"`
	Retry       RetryConfig       `toml:"retry"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
	AuthFile string `toml:"auth_file"`
}

// MigrationConfig controls the migration engine.
type MigrationConfig struct {
	ChunkSize        int      `toml:"chunk_size"`
	StatePath        string   `toml:"state_path"`
	FailedReportPath string   `toml:"failed_report_path"`
	PlaylistPrefix   string   `toml:"playlist_prefix"`
	LikedName        string   `toml:"liked_name"`
	AddRetryDelay    Duration `toml:"add_retry_delay"`
	OwnedOnly        bool     `toml:"owned_only"`
}

// TargetConfig contains limits imposed by the target catalog.
type TargetConfig struct {
	BatchSize   int      `toml:"batch_size"`
	SearchDelay Duration `toml:"search_delay"`
	SearchLimit int      `toml:"search_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that reads and writes as a string such as "3s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std converts d to a [time.Duration].
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks engine limits and reports every problem found.
//
// Credentials are not checked here; see the validate command.
func (c *Config) Validate() error {
	var errs []error

	if c.Migration.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: migration.chunk_size must be positive", ErrInvalidConfig))
	}
	if c.Migration.StatePath == "" {
		errs = append(errs, fmt.Errorf("%w: migration.state_path is empty", ErrInvalidConfig))
	}
	if c.Target.BatchSize <= 0 || c.Target.BatchSize > MaxAddBatch {
		errs = append(errs, fmt.Errorf("%w: target.batch_size must be between 1 and %d", ErrInvalidConfig, MaxAddBatch))
	}
	if c.Target.SearchDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: target.search_delay is negative", ErrInvalidConfig))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// MaxAddBatch is the largest number of ids the target accepts in one add call.
const MaxAddBatch = 50
