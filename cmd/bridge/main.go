package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/agent"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/config"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/health"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/remediation"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("bridge: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Hand failed n8n workflows to a coding agent for repair",
		Long: `bridge accepts n8n error-workflow webhooks on POST /fix-workflow,
asks the claude CLI to repair the failed workflow, and answers with
what the agent did.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{
				ConfigFile: configFile,
				DotEnvFile: ".env",
				Flags:      cmd.Flags(),
			})
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a YAML config file (default $BRIDGE_CONFIG)")
	flags.Int("port", 3456, "port to listen on")
	flags.String("host", "0.0.0.0", "interface to listen on")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("agent-binary", agent.DefaultBinary, "agent executable to launch")
	flags.Duration("agent-timeout", agent.DefaultTimeout, "wall-clock limit for one agent run")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.UsesDefaultAPIKey() {
		logger.Warn("Using the default API key; set BRIDGE_API_KEY before exposing this service")
	}

	shutdownTracing, err := tracing.Initialize(cfg.Tracing, logger)
	if err != nil {
		// Tracing is optional; keep serving without it.
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	var echo io.Writer
	if cfg.Agent.EchoOutput {
		echo = os.Stdout
	}
	runner := agent.NewRunner(agent.Config{
		Binary:                  cfg.Agent.Binary,
		Args:                    cfg.Agent.Args,
		WorkDir:                 cfg.Agent.WorkDir,
		ScratchDir:              cfg.Agent.ScratchDir,
		Timeout:                 cfg.Agent.Timeout,
		Stdout:                  echo,
		Stderr:                  os.Stderr,
		CleanupFailureThreshold: cfg.Agent.CleanupAlertThreshold,
	}, logger)
	service := remediation.NewService(runner, logger)

	healthManager := health.NewManager(logger)
	for _, c := range []health.Checker{
		health.NewAgentBinaryChecker(cfg.Agent.Binary),
		health.NewScratchDirChecker(cfg.Agent.ScratchDir),
	} {
		if err := healthManager.RegisterChecker(c); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(cfg, service, healthManager, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Bridge starting",
			zap.String("addr", cfg.Addr()),
			zap.String("health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Port)),
			zap.String("webhook_url", fmt.Sprintf("http://localhost:%d/fix-workflow", cfg.Port)),
			zap.String("agent_binary", cfg.Agent.Binary),
			zap.Duration("agent_timeout", cfg.Agent.Timeout),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("failed to start bridge: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	grace := cfg.ShutdownGrace()
	logger.Info("Bridge shutting down...", zap.Duration("grace", grace))

	// In-flight agent runs finish and clean up before their handlers return.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Bridge forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Bridge stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
