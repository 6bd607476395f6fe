// Package main is the entry point for the chordserve binary.
// It serves an authenticated HTTP API that converts ChordPro song sheets
// into rendered documents via the external chordpro executable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chordserve/chordserve/pkg/auth"
	"github.com/chordserve/chordserve/pkg/logging"
	"github.com/chordserve/chordserve/pkg/server"
	"github.com/chordserve/chordserve/pkg/telemetry"
)

const (
	defaultListenAddr = ":8080"
	defaultLogLevel   = "info"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for chordserve.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chordserve",
		Short: "ChordPro conversion API server",
		Long: `An HTTP API that converts ChordPro song sheets to PDF, text, ChordPro,
or HTML by driving the chordpro renderer.

API keys come from the environment: a comma-separated API_KEYS variable and
any number of API_KEY_* variables. Without keys the server refuses to start
unless DEVELOPMENT_MODE is explicitly enabled.

Example:
  API_KEYS=k1,k2 chordserve --listen :8080`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringP("listen", "a", defaultListenAddr, "Address to listen on")
	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Human-readable console logs instead of JSON")

	return rootCmd
}

// buildConfig merges the optional config file under the CLI flags.
func buildConfig(cmd *cobra.Command) (*server.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	config := server.DefaultConfig()
	if configPath != "" {
		config, err = server.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("listen") || config.ListenAddr == "" {
		listen, err := cmd.Flags().GetString("listen")
		if err != nil {
			return nil, err
		}
		config.ListenAddr = listen
	}

	return config, nil
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, _ []string) error {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.Config{Level: logLevel, Pretty: pretty})
	slog.SetDefault(logger)

	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting chordserve",
		"listen_addr", config.ListenAddr,
		"renderer", config.RendererBinary,
		"render_timeout", config.RenderTimeout,
	)

	// Credential material always comes from the environment; refusing to
	// start here is what keeps an unauthenticated instance off the network.
	policy, err := auth.LoadPolicy(os.Environ(), logger)
	if err != nil {
		return fmt.Errorf("loading access policy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "chordserve",
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Environment: os.Getenv("DEPLOY_ENVIRONMENT"),
		Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	srv := server.New(config, policy, logger)

	if version, err := srv.Processor().Version(ctx); err != nil {
		logger.Error("chordpro not properly installed or accessible", "error", err)
	} else {
		logger.Info("renderer available", "version", version)
	}

	serveErr := srv.Start(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("trace flush failed", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	logger.Info("shutdown complete")
	return nil
}
