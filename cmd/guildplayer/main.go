// Package main provides the GuildPlayer CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"guildplayer/internal/chat/discord"
	"guildplayer/internal/core"
	"guildplayer/internal/engine"
	"guildplayer/internal/flood"
	httpserver "guildplayer/internal/http"
	"guildplayer/internal/i18n"
	"guildplayer/internal/store"
)

const (
	envPrefix              = "GUILDPLAYER"
	sessionReportInterval  = 15 * time.Second
	defaultServerHost      = "0.0.0.0"
	restoreAttemptsTimeout = 2 * time.Minute
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "guildplayer",
	Short: "GuildPlayer - Discord playback session controller",
	Long: `GuildPlayer keeps Discord music sessions tidy: it posts and replaces the
"now playing" card, expires transient notices, continues playback with autoplay
and recreates 24/7 sessions after they are torn down.`,
	RunE: runGuildPlayer,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")
	flags.String("discord-token", "", "Discord bot token")
	flags.String("store-path", defaults.Store.Path, "Guild settings database path")
	flags.Int("store-cache-size", defaults.Store.CacheSize, "Number of guild settings kept in memory")
	flags.Bool("server-enabled", defaults.Server.Enabled, "Serve health and metrics endpoints")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Bot language (%s)", supportedLangs))
	flags.Duration("event-timeout", defaults.App.EventTimeout, "Timeout for the chat calls of one playback event")
	flags.Int("event-buffer-size", defaults.App.EventBufferSize, "Queued playback events per guild")
	flags.Int("notice-limit-per-minute", defaults.App.NoticeLimitPerMinute,
		"Maximum notices of one kind per guild per minute (0 disables the limit)")
	flags.Duration("min-track-length", defaults.App.MinTrackLength, "Tracks shorter than this are skipped")
	flags.Duration("short-notice-ttl", defaults.App.ShortNoticeTTL, "Lifetime of skip notices")
	flags.Duration("move-notice-ttl", defaults.App.MoveNoticeTTL, "Lifetime of voice move notices")
	flags.Duration("farewell-ttl", defaults.App.FarewellTTL, "Lifetime of the queue empty farewell")
	flags.Int("history-size", defaults.App.HistorySize, "Played tracks remembered per guild for autoplay")
	flags.Int("default-volume", defaults.App.DefaultVolume, "Volume of new sessions in percent")
	flags.Int("reconnect-max-attempts", defaults.Reconnect.MaxAttempts, "Attempts to recreate a 24/7 session")
	flags.Duration("reconnect-retry-delay", defaults.Reconnect.RetryDelay, "Delay between reconnection attempts")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(settingsCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Discord.Token = viper.GetString("discord-token")
	configureStore(cfg)
	configureServer(cfg)
	configureApp(cfg)
	configureReconnect(cfg)

	return cfg
}

func configureStore(cfg *core.Config) {
	cfg.Store.Path = viper.GetString("store-path")
	if size := viper.GetInt("store-cache-size"); size > 0 {
		cfg.Store.CacheSize = size
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Enabled = viper.GetBool("server-enabled")
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	language := viper.GetString("language")
	cfg.App.Language = i18n.MatchLanguage(language)
	if language != "" && !strings.EqualFold(language, cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Language '%s' mapped to '%s'. Supported languages: %s\n",
			language, cfg.App.Language, strings.Join(i18n.GetSupportedLanguages(), ", "))
	}

	cfg.App.EventTimeout = positiveDuration("event-timeout", cfg.App.EventTimeout)
	if size := viper.GetInt("event-buffer-size"); size > 0 {
		cfg.App.EventBufferSize = size
	}
	cfg.App.NoticeLimitPerMinute = viper.GetInt("notice-limit-per-minute")

	cfg.App.MinTrackLength = positiveDuration("min-track-length", cfg.App.MinTrackLength)
	cfg.App.ShortNoticeTTL = positiveDuration("short-notice-ttl", cfg.App.ShortNoticeTTL)
	cfg.App.MoveNoticeTTL = positiveDuration("move-notice-ttl", cfg.App.MoveNoticeTTL)
	cfg.App.FarewellTTL = positiveDuration("farewell-ttl", cfg.App.FarewellTTL)

	if size := viper.GetInt("history-size"); size > 0 {
		cfg.App.HistorySize = size
	}
	cfg.App.DefaultVolume = min(max(viper.GetInt("default-volume"), 0), 200)
}

func configureReconnect(cfg *core.Config) {
	if attempts := viper.GetInt("reconnect-max-attempts"); attempts > 0 {
		cfg.Reconnect.MaxAttempts = attempts
	}
	cfg.Reconnect.RetryDelay = viper.GetDuration("reconnect-retry-delay")
}

// positiveDuration reads a duration flag, keeping fallback for unset or
// non-positive values.
func positiveDuration(key string, fallback time.Duration) time.Duration {
	d := viper.GetDuration(key)
	if d <= 0 {
		if viper.IsSet(key) {
			fmt.Printf("Warning: Invalid %s (%s), using default (%s)\n", key, d, fallback)
		}
		return fallback
	}
	return d
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runGuildPlayer(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting GuildPlayer",
		zap.String("language", config.App.Language),
		zap.String("store", config.Store.Path),
		zap.Bool("server_enabled", config.Server.Enabled))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

func validateConfig() error {
	if config.Discord.Token == "" {
		return errors.New("discord token is required")
	}
	if config.Store.Path == "" {
		return errors.New("store path is required")
	}
	if config.Server.Enabled && (config.Server.Port <= 0 || config.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	return nil
}

type services struct {
	settings    *store.SettingsStore
	frontend    *discord.Frontend
	httpServer  *httpserver.Server
	floodgate   *flood.Floodgate
	recommender *engine.HistoryRecommender
	player      *engine.Player
	bus         *engine.EventBus
	controller  *core.Controller
}

func initializeServices(ctx context.Context) (*services, error) {
	settings, err := store.Open(ctx, config.Store, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	frontend, err := discord.NewFrontend(&discord.Config{
		Token: config.Discord.Token,
		Style: config.Style,
	}, logger.Named("discord"))
	if err != nil {
		_ = settings.Close()
		return nil, err
	}

	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))
	floodgate := flood.New(config.App.NoticeLimitPerMinute)
	recommender := engine.NewHistoryRecommender(config.App.HistorySize)

	// The bus and the player are created before the controller they feed.
	var controller *core.Controller
	bus := engine.NewEventBus(engine.DispatcherFunc(func(ctx context.Context, ev core.Event) {
		controller.Dispatch(ctx, ev)
	}), config.App.EventBufferSize, httpServer, logger.Named("events"))

	player := engine.NewPlayer(frontend, recommender, bus, config.App.DefaultVolume, logger.Named("player"))
	controller = core.NewController(config, player, settings, frontend, floodgate, httpServer,
		logger.Named("controller"))
	frontend.SetMoveReporter(player)

	return &services{
		settings:    settings,
		frontend:    frontend,
		httpServer:  httpServer,
		floodgate:   floodgate,
		recommender: recommender,
		player:      player,
		bus:         bus,
		controller:  controller,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	if config.Server.Enabled {
		g.Go(func() error {
			return svcs.httpServer.Start(gCtx)
		})
	}

	g.Go(func() error {
		return svcs.bus.Run(gCtx)
	})

	g.Go(func() error {
		if err := svcs.frontend.Start(gCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to start Discord frontend: %w", err)
		}

		restorePersistentSessions(gCtx, svcs)
		svcs.httpServer.SetReady(true)

		<-gCtx.Done()
		svcs.httpServer.SetReady(false)
		return nil
	})

	g.Go(func() error {
		reportSessions(gCtx, svcs)
		return nil
	})

	logger.Info("GuildPlayer started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	err := g.Wait()
	shutdown(svcs)

	if err != nil {
		logger.Error("GuildPlayer stopped with error", zap.Error(err))
		return err
	}

	logger.Info("GuildPlayer stopped gracefully")
	return nil
}

// restorePersistentSessions recreates the 24/7 sessions stored before the
// last shutdown.
func restorePersistentSessions(ctx context.Context, svcs *services) {
	ctx, cancel := context.WithTimeout(ctx, restoreAttemptsTimeout)
	defer cancel()

	guilds, err := svcs.settings.PersistentGuilds(ctx)
	if err != nil {
		logger.Warn("Failed to load persistent sessions", zap.Error(err))
		return
	}

	policy := core.NewReconnectionPolicy(svcs.player, config.Reconnect, logger.Named("restore"))
	restored := 0
	for _, settings := range guilds {
		_, err := policy.Reconnect(ctx, settings.GuildID,
			settings.Persistent.VoiceChannelID, settings.Persistent.TextChannelID)
		if err != nil {
			svcs.httpServer.RecordReconnect("failed")
			logger.Warn("Failed to restore persistent session",
				zap.String("guildID", settings.GuildID),
				zap.Error(err))
			continue
		}
		svcs.httpServer.RecordReconnect("restored")
		restored++
	}

	logger.Info("Restored persistent sessions",
		zap.Int("restored", restored),
		zap.Int("configured", len(guilds)))
}

func reportSessions(ctx context.Context, svcs *services) {
	ticker := time.NewTicker(sessionReportInterval)
	defer ticker.Stop()

	for {
		svcs.httpServer.SetActiveSessions(svcs.player.Sessions())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func shutdown(svcs *services) {
	svcs.controller.Close()

	if err := svcs.frontend.Stop(); err != nil {
		logger.Debug("Failed to close Discord session", zap.Error(err))
	}

	svcs.floodgate.Stop()

	if err := svcs.settings.Close(); err != nil {
		logger.Debug("Failed to close settings store", zap.Error(err))
	}
}
