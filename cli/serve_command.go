package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/api"
	"chatrelay/client"
	"chatrelay/common"
	"chatrelay/secret_manager"
	"chatrelay/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the chat relay server",
		Description: "Starts the relay on the configured port. Provider keys are read from the " +
			"environment, or from the OS keyring when CHATRELAY_SECRET_SOURCE includes keyring.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a chatrelay config file (yml, yaml, toml or json)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on, overriding the config file",
			},
		},
		Action: handleServeCommand,
	}
}

func handleServeCommand(ctx context.Context, cmd *cli.Command) error {
	workingDir, _ := os.Getwd()
	config, _, err := common.ResolveRelayConfig(cmd.String("config"), workingDir)
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = port
		if err := config.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	shutdownTracer, err := telemetry.InitTracer("chatrelay")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	secrets, err := secret_manager.FromEnvironment()
	if err != nil {
		return err
	}

	srv, err := api.RunServer(config, secrets)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%d", config.Server.Port)
	if waitForServer(ctx, url, 5*time.Second) {
		fmt.Fprintf(cmd.Root().Writer, "chatrelay %s listening on %s\n", version, url)
	} else {
		log.Error().Msg("Server did not become ready in time")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info().Msg("Stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful API server shutdown failed")
	}
	return shutdownTracer(shutdownCtx)
}

// waitForServer polls the health endpoint until it answers or times out.
func waitForServer(ctx context.Context, url string, timeout time.Duration) bool {
	c := client.New(url)
	c.HTTPClient = &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := c.Health(ctx); err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false
}
