// Package servecmder provides the serve command that runs the persona chat server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/persona/api"
	"github.com/papercomputeco/persona/pkg/chat"
	"github.com/papercomputeco/persona/pkg/config"
	"github.com/papercomputeco/persona/pkg/eventstream/worker"
	"github.com/papercomputeco/persona/pkg/logger"
	"github.com/papercomputeco/persona/pkg/metrics"
	"github.com/papercomputeco/persona/pkg/telemetry"
)

type serveCommander struct {
	flags config.FlagSet

	listen       string
	debugRoutes  bool
	provider     string
	model        string
	baseURL      string
	promptFile   string
	sessionStore string
	sqlitePath   string
	postgresDSN  string
	redisAddr    string
	redisTTL     string
	events       string
	kafkaBrokers string
	kafkaTopic   string
	exporter     string
	otlpEndpoint string

	configDir string
	debug     bool
	logJSON   bool
	logFile   string

	cfg    *config.Config
	logger *slog.Logger
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagDebugRoutes,
	config.FlagProvider,
	config.FlagModel,
	config.FlagBaseURL,
	config.FlagPromptFile,
	config.FlagSessionStore,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedis,
	config.FlagRedisTTL,
	config.FlagEvents,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagTelemetry,
	config.FlagOTLPEndpoint,
}

const serveLongDesc string = `Run the persona chat server.

The server answers POST /chat and POST /api/chat with a reply generated by the
configured model, prefixed with the persona prompt and the session's transcript.

Settings resolve from flags, then PERSONA_* environment variables, then
.persona/config.toml, then built-in defaults. The model API key is read once at
startup from PERSONA_MODEL_API_KEY, the provider's usual variable (for example
OPENROUTER_API_KEY) or credentials stored with "persona auth".

Examples:
  persona serve
  persona serve --listen :9000 --session-store sqlite --sqlite ./persona.db
  persona serve --provider gemini --model gemini-2.0-flash
  persona serve --events kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the persona chat server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{flags: config.ServeFlags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagDebugRoutes, &cmder.debugRoutes)
	config.AddStringFlag(cmd, cmder.flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPromptFile, &cmder.promptFile)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSessionStore, &cmder.sessionStore)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedis, &cmder.redisAddr)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedisTTL, &cmder.redisTTL)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEvents, &cmder.events)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTelemetry, &cmder.exporter)
	config.AddStringFlag(cmd, cmder.flags, config.FlagOTLPEndpoint, &cmder.otlpEndpoint)

	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write logs as JSON")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := c.cfg

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			c.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics.Init()

	store, err := newSessionStore(ctx, cfg.Session, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := newPersonaSource(ctx, cfg.Persona, c.logger)
	if err != nil {
		return err
	}

	completer, err := newCompleter(ctx, cfg.Model, c.configDir, c.logger)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg.Events, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event worker pool: %w", err)
	}
	// Drain queued events before the publisher closes.
	defer pool.Close()

	temperature := cfg.Model.Temperature
	orch, err := chat.New(chat.Config{
		Store:       store,
		Persona:     source,
		Completer:   completer,
		Provider:    cfg.Model.Provider,
		Model:       cfg.Model.Name,
		Temperature: &temperature,
		Events:      pool,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.Server.Listen,
		DebugRoutes: cfg.Server.DebugRoutes,
	}, orch, c.logger)

	if cfg.Server.DebugRoutes {
		c.logger.Warn("debug routes enabled, transcripts are readable by session id")
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Warn("server shutdown failed", "error", err)
	}
	return nil
}

// initLogger builds the process logger. With --log-file a second JSON logger
// is fanned out to the file alongside the console.
func (c *serveCommander) initLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.logJSON),
		logger.WithJSON(c.logJSON),
		logger.WithWriter(os.Stderr),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	c.logger = logger.Multi(console, file)

	return func() { _ = f.Close() }, nil
}
