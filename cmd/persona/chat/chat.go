// Package chatcmder provides the chat command, a terminal client for a
// running persona server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/persona/api"
	"github.com/papercomputeco/persona/pkg/cliui"
	"github.com/papercomputeco/persona/pkg/config"
	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("persona> ")
)

type chatCommander struct {
	flags config.FlagSet

	target    string
	sessionID string
	raw       bool
	debug     bool

	in     io.Reader
	out    io.Writer
	client *http.Client
	logger *slog.Logger
}

const chatLongDesc string = `Chat with a running persona server from the terminal.

Each run starts a new session with a random id unless --session is given, so
the server keeps the conversation history between messages. Pass a message as
arguments to send a single turn and exit.

Examples:
  persona chat
  persona chat "What projects have you worked on?"
  persona chat --session 0f8c... --target https://example.com`

const chatShortDesc string = "Chat with a running persona server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		flags: config.ClientFlags,
		in:    os.Stdin,
		out:   os.Stdout,
		client: &http.Client{
			// Reasoning models can be slow
			Timeout: 5 * time.Minute,
		},
	}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{config.FlagTarget})
			cmder.target = strings.TrimRight(config.FromViper(v).Client.Target, "/")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logger = logger.New(logger.WithDebug(cmder.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

			if cmder.sessionID == "" {
				cmder.sessionID = uuid.NewString()
			}

			if len(args) > 0 {
				return cmder.once(cmd.Context(), strings.Join(args, " "))
			}
			return cmder.repl(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session id to continue (default: new random id)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}

func (c *chatCommander) once(ctx context.Context, message string) error {
	reply, err := c.send(ctx, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.render(reply))
	return nil
}

func (c *chatCommander) repl(ctx context.Context) error {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Server:"), cliui.ValueStyle.Render(c.target))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(c.sessionID))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		var reply string
		err := cliui.Step(c.out, "thinking", func() error {
			var err error
			reply, err = c.send(ctx, input)
			return err
		})
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintf(c.out, "%s\n%s\n", assistantPrompt, c.render(reply))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// send posts one message and returns the reply.
func (c *chatCommander) send(ctx context.Context, message string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(api.ChatRequest{Message: message, SessionID: c.sessionID})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.target + "/api/chat"
	c.logger.Debug("sending chat request", "url", url, "session_id", c.sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request to %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr llm.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Detail != "" {
				return "", fmt.Errorf("%s: %s", apiErr.Error, apiErr.Detail)
			}
			return "", errors.New(apiErr.Error)
		}
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}

	var out api.ChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return out.Reply, nil
}

func (c *chatCommander) render(reply string) string {
	if c.raw {
		return reply
	}

	width := 80
	if f, ok := c.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	rendered, err := cliui.RenderMarkdown(reply, width)
	if err != nil {
		c.logger.Debug("markdown render failed", "error", err)
	}
	return strings.TrimRight(rendered, "\n")
}
