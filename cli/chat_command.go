package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chatrelay/client"
	"chatrelay/domain"

	"github.com/erikgeiser/promptkit/selection"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /model [name]         switch model, or pick one interactively
  /tool <name> on|off   toggle a tool
  /tools                show tools and whether they are enabled
  /clear                start a new chat
  /quit                 leave`

func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Chat with a model through the relay",
		ArgsUsage: "[message]",
		Description: "With a message argument, sends it once and prints the reply. Without one, " +
			"starts an interactive chat that reads lines from stdin.",
		Flags: []cli.Flag{
			urlFlag(),
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model name, eg gpt-4o or claude-3-5-sonnet-20241022",
			},
			&cli.BoolFlag{
				Name:    "select",
				Aliases: []string{"s"},
				Usage:   "Pick the model interactively",
			},
			&cli.BoolFlag{
				Name:  "web-search",
				Usage: "Enable web search (OpenAI models only)",
			},
		},
		Action: handleChatCommand,
	}
}

func handleChatCommand(ctx context.Context, cmd *cli.Command) error {
	session := client.NewSession(client.New(cmd.String("url")))
	out := cmd.Root().Writer

	if name := cmd.String("model"); name != "" {
		if err := selectModelByName(session, name); err != nil {
			return err
		}
	} else if cmd.Bool("select") {
		if err := selectModelInteractive(session); err != nil {
			return err
		}
	}
	if cmd.Bool("web-search") {
		if err := enableTool(session, domain.ToolWebSearch, true); err != nil {
			return err
		}
	}

	if cmd.Args().Present() {
		return sendAndRender(ctx, session, strings.Join(cmd.Args().Slice(), " "), out)
	}
	fmt.Fprintf(out, "Chatting with %s. Type /help for commands.\n", session.Model().DisplayName)
	return chatLoop(ctx, session, cmd.Root().Reader, out)
}

// chatLoop reads one line per turn until EOF or /quit.
func chatLoop(ctx context.Context, session *client.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "/") {
			quit, err := runChatCommand(session, line, out)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := sendAndRender(ctx, session, line, out); err != nil && !errors.Is(err, client.ErrEmptyInput) {
			fmt.Fprintln(out, "Error:", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func runChatCommand(session *client.Session, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/clear":
		session.Clear()
		fmt.Fprintln(out, "Started a new chat.")
	case "/model":
		var err error
		if len(fields) > 1 {
			err = selectModelByName(session, fields[1])
		} else {
			err = selectModelInteractive(session)
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Now chatting with %s.\n", session.Model().DisplayName)
	case "/tools":
		for _, tool := range session.Tools() {
			state := "off"
			if tool.Enabled {
				state = "on"
			}
			fmt.Fprintf(out, "  %s (%s): %s\n", tool.Name, tool.DisplayName, state)
		}
	case "/tool":
		if len(fields) != 3 || (fields[2] != "on" && fields[2] != "off") {
			return false, fmt.Errorf("usage: /tool <name> on|off")
		}
		if err := enableTool(session, fields[1], fields[2] == "on"); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %s.\n", fields[1], fields[2])
	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
	return false, nil
}

func enableTool(session *client.Session, name string, enabled bool) error {
	if name == domain.ToolWebSearch && enabled && session.Model().Provider != domain.ProviderOpenAI {
		return fmt.Errorf("web search is only available with OpenAI models")
	}
	return session.SetToolEnabled(name, enabled)
}

func selectModelByName(session *client.Session, name string) error {
	model, ok := domain.FindModelByName(name)
	if !ok {
		return fmt.Errorf("unknown model: %s", name)
	}
	return session.SelectModel(model.Provider, model.Name)
}

func selectModelInteractive(session *client.Session) error {
	models := domain.AvailableModels()
	choices := make([]string, 0, len(models))
	for _, model := range models {
		choices = append(choices, fmt.Sprintf("%s (%s)", model.DisplayName, model.Name))
	}

	choice, err := selection.New("Select a model", choices).RunPrompt()
	if err != nil {
		return fmt.Errorf("model selection failed: %w", err)
	}
	for i, c := range choices {
		if c == choice {
			return session.SelectModel(models[i].Provider, models[i].Name)
		}
	}
	return fmt.Errorf("unknown model: %s", choice)
}

func sendAndRender(ctx context.Context, session *client.Session, input string, out io.Writer) error {
	renderer := &replyRenderer{out: out}
	_, err := session.Submit(ctx, input, renderer.update)
	return err
}

// replyRenderer prints a reply as it grows. Content that does not extend
// what was already printed, like an error replacing a partial reply, is
// printed on a fresh line.
type replyRenderer struct {
	out     io.Writer
	printed string
}

func (r *replyRenderer) update(u client.Update) {
	if u.Loading {
		return
	}
	content := u.Message.Content
	if strings.HasPrefix(content, r.printed) {
		fmt.Fprint(r.out, content[len(r.printed):])
	} else {
		fmt.Fprint(r.out, "\n"+content)
	}
	r.printed = content
	if u.Done {
		fmt.Fprintln(r.out)
	}
}
