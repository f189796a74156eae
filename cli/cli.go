package main

import (
	"context"
	"fmt"
	"os"

	"chatrelay/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "chatrelay",
		Usage:   "Chat with hosted LLMs through a local streaming relay",
		Version: version,
		Commands: []*cli.Command{
			NewServeCommand(),
			NewChatCommand(),
			NewModelsCommand(),
			NewToolsCommand(),
			NewAuthCommand(),
		},
	}
}

func main() {
	// Load .env file if any
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Warning: failed to load .env file")
		}
	}
	log.Logger = logger.Get()

	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
