package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/auth"
	"github.com/MarcoPoloResearchLab/decks/internal/config"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/MarcoPoloResearchLab/decks/internal/editbatch"
	"github.com/MarcoPoloResearchLab/decks/internal/logging"
	"github.com/MarcoPoloResearchLab/decks/internal/server"
	"github.com/MarcoPoloResearchLab/decks/internal/tracking"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "decks-api",
		Short: "Slide deck editor and share link backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newImportEditsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Viewer token signing secret (overrides env)")
	cmd.PersistentFlags().Int("viewer-token-ttl-minutes", defaults.GetInt("viewer.token_ttl_minutes"), "Viewer token TTL in minutes")
	cmd.PersistentFlags().String("redis-url", "", "Redis URL for preferences (SQLite when empty)")
	cmd.PersistentFlags().String("catalog-path", "", "TOML slide catalog (embedded deck when empty)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "viewer.signing_secret", "signing-secret")
	bindFlag(cmd, "viewer.token_ttl_minutes", "viewer-token-ttl-minutes")
	bindFlag(cmd, "redis.url", "redis-url")
	bindFlag(cmd, "catalog.path", "catalog-path")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newImportEditsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-edits <file.toml>",
		Short: "Apply slide edits from a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportEdits(cmd.Context(), args[0])
		},
	}
}

func runImportEdits(ctx context.Context, path string) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := openApp(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	batcher, err := editbatch.New(editbatch.Config{
		Flush: func(ctx context.Context, edits []deck.EditInput) error {
			_, err := app.deckService.SaveEdits(ctx, edits)
			return err
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	count, err := editbatch.ImportFile(ctx, batcher, path)
	if closeErr := batcher.Close(ctx); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	logger.Info("edits imported", zap.String("path", path), zap.Int("edits", count))
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	app, err := openApp(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.ViewerSigningSecret),
		TokenTTL:      appConfig.ViewerTokenTTL,
	})
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.ViewerSigningSecret),
		CookieName:    appConfig.ViewerCookieName,
	})
	if err != nil {
		return err
	}

	recorder, err := tracking.NewRecorder(tracking.Config{
		Sink:          app.deckService,
		BufferSize:    appConfig.TrackingBufferSize,
		FlushInterval: appConfig.TrackingFlushInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		DeckService:       app.deckService,
		TokenIssuer:       tokenIssuer,
		Sessions:          sessions,
		Preferences:       app.preferences,
		Tracker:           recorder,
		Realtime:          server.NewRealtimeDispatcher(),
		ProfileCookieName: appConfig.ProfileCookieName,
		AllowedOrigins:    appConfig.AllowedOrigins,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if err := recorder.Close(shutdownCtx); err != nil {
			logger.Warn("tracking recorder did not drain", zap.Error(err))
		}
		return shutdownErr
	case err := <-errCh:
		_ = recorder.Close(context.Background())
		return err
	}
}
