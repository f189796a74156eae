package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"chatrelay/client"
	"chatrelay/common"
	"chatrelay/domain"

	"github.com/urfave/cli/v3"
)

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Value:   common.GetServerURL(),
		Usage:   "Base URL of the chat relay",
	}
}

func NewModelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the selectable models",
		Flags: []cli.Flag{
			urlFlag(),
			&cli.BoolFlag{
				Name:    "remote",
				Aliases: []string{"r"},
				Usage:   "Ask the relay which providers have credentials configured",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if !cmd.Bool("remote") {
				fmt.Fprintln(w, "PROVIDER\tNAME\tDISPLAY NAME\tSTREAMING")
				for _, model := range domain.AvailableModels() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", model.Provider, model.Name, model.DisplayName, model.Provider.SupportsStreaming())
				}
				return nil
			}

			models, err := client.New(cmd.String("url")).Models(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch models: %w", err)
			}
			fmt.Fprintln(w, "PROVIDER\tNAME\tDISPLAY NAME\tSTREAMING\tCONFIGURED")
			for _, model := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", model.Provider, model.Name, model.DisplayName, model.Streaming, model.Configured)
			}
			return nil
		},
	}
}

func NewToolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List the tools that can be enabled in a chat",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "NAME\tDISPLAY NAME\tDESCRIPTION")
			for _, tool := range domain.AvailableTools() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tool.Name, tool.DisplayName, tool.Description)
			}
			return nil
		},
	}
}
