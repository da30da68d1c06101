package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Catalog clients are built on first use from the loaded configuration unless they were injected.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceCatalog
	target     services.TargetCatalog
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceCatalog
	Target     services.TargetCatalog
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		target:     opts.Target,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		migrateCommand, retryFailedCommand, resetCommand, validateCommand, setupOAuthCommand,
		statusCommand, reportCommand, historyCommand, initCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads .env and the configuration file named by --config before any command runs.
//
// A missing configuration file falls back to the embedded defaults.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(); err != nil {
		return ctx, err
	}

	path := cmd.String("config")
	r.configPath = path

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return ctx, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config

	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, config.Log.Level)
	}
	return ctx, nil
}

// spotifyService builds an unauthenticated Spotify client from the configured credentials.
func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	return services.NewSpotifyService(
		r.config.Credentials.Spotify.Map(),
		services.WithOwnedOnly(r.config.Migration.OwnedOnly),
	)
}

// sourceCatalog returns the injected source or a Spotify client using the saved token.
func (r *Runner) sourceCatalog(ctx context.Context) (services.SourceCatalog, error) {
	if r.source != nil {
		return r.source, nil
	}

	spotify, err := r.spotifyService()
	if err != nil {
		return nil, err
	}
	token, err := shared.LoadToken(r.config.Credentials.Spotify.TokenPath)
	if err != nil {
		return nil, err
	}
	spotify.UseToken(ctx, token)

	r.source = spotify
	return spotify, nil
}

// youtubeService builds a proxy client for the configured auth file.
func (r *Runner) youtubeService(ctx context.Context) (*services.YouTubeService, error) {
	youtube := services.NewYouTubeService(r.config.Credentials.YouTube.ProxyURL)
	youtube.SetSearchLimit(r.config.Target.SearchLimit)

	creds := map[string]string{"auth_file": r.config.Credentials.YouTube.AuthFile}
	if err := youtube.Authenticate(ctx, creds); err != nil {
		return nil, err
	}
	return youtube, nil
}

// targetCatalog returns the injected target or a YouTube Music proxy client.
func (r *Runner) targetCatalog(ctx context.Context) (services.TargetCatalog, error) {
	if r.target != nil {
		return r.target, nil
	}

	youtube, err := r.youtubeService(ctx)
	if err != nil {
		return nil, err
	}
	r.target = youtube
	return youtube, nil
}

// openState loads the migration state file.
func (r *Runner) openState() (*repositories.StateStore, error) {
	return repositories.OpenStateStore(r.config.Migration.StatePath)
}

// openHistory opens the run-history database and sweeps runs left running by a crash.
//
// History is optional: on failure a warning is logged and a nil recorder is returned.
func (r *Runner) openHistory() (*repositories.HistoryRecorder, func()) {
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return nil, func() {}
	}

	recorder := repositories.NewHistoryRecorder(repositories.NewMigrationRepository(db))
	if n, err := recorder.MarkInterrupted(); err != nil {
		r.logger.Warn("failed to sweep stale runs", "error", err)
	} else if n > 0 {
		r.logger.Info("marked stale runs as interrupted", "count", n)
	}

	return recorder, func() { db.Close() }
}

// engineOptions maps the configuration onto engine options.
func (r *Runner) engineOptions() tasks.EngineOptions {
	c := r.config
	retry := c.Retry
	retry.Logger = r.logger

	return tasks.EngineOptions{
		ChunkSize:      c.Migration.ChunkSize,
		BatchSize:      c.Target.BatchSize,
		AddRetryDelay:  c.Migration.AddRetryDelay.Std(),
		SearchDelay:    c.Target.SearchDelay.Std(),
		PlaylistPrefix: c.Migration.PlaylistPrefix,
		LikedName:      c.Migration.LikedName,
		Retry:          &retry,
		Logger:         r.logger,
	}
}

// newEngine wires the catalogs, state and optional run history into a [tasks.MigrationEngine].
//
// The returned cleanup closes the history database.
func (r *Runner) newEngine(ctx context.Context, withHistory bool) (*tasks.MigrationEngine, *repositories.StateStore, func(), error) {
	source, err := r.sourceCatalog(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := r.targetCatalog(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	state, err := r.openState()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := r.engineOptions()
	cleanup := func() {}
	if withHistory {
		var recorder *repositories.HistoryRecorder
		recorder, cleanup = r.openHistory()
		if recorder != nil {
			opts.Recorder = recorder
		}
	}

	return tasks.NewMigrationEngine(source, target, state, opts), state, cleanup, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
