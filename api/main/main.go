package main

import (
	"chatrelay/api"
	"chatrelay/common"
	"chatrelay/logger"
	"chatrelay/secret_manager"
	"chatrelay/telemetry"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("Error loading .env file")
		}
	}
	log.Logger = logger.Get()

	shutdownTracer, err := telemetry.InitTracer("chatrelay")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	workingDir, _ := os.Getwd()
	config, configPath, err := common.ResolveRelayConfig("", workingDir)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	secrets, err := secret_manager.FromEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid secret source")
	}

	srv, err := api.RunServer(config, secrets)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start API server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// graceful shutdown, in-flight streams get a few seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}
}
