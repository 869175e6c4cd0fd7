package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/config"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/server"
)

type chatOptions struct {
	Token  string
	UserID string
}

func newChatCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal (/do N, /clear, /quit)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := cfg.NewLogger()
			// keep the prompt readable unless debugging
			if log.GetLevel() < logrus.DebugLevel {
				log.SetLevel(logrus.WarnLevel)
			}

			backend, err := server.NewBackend(cfg, log)
			if err != nil {
				return err
			}
			defer backend.Close()

			conv, err := backend.NewConversation("cli")
			if err != nil {
				return err
			}
			defer conv.Close()

			ctx := marketplace.WithCredentials(cmd.Context(), marketplace.Credentials{Token: opts.Token, UserID: opts.UserID})
			return runREPL(ctx, conv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "marketplace bearer token")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "marketplace user id")
	return cmd
}

// runREPL reads utterances until EOF or /quit. "/do N" runs the Nth action of
// the last bot turn.
func runREPL(ctx context.Context, conv *assistant.Orchestrator, in io.Reader, out io.Writer) error {
	var actions []chat.Action
	show := func(msgs ...chat.Message) {
		for _, m := range msgs {
			printMessage(out, m)
			actions = m.Actions
		}
	}
	if welcome, ok := conv.Session().Last(); ok {
		show(welcome)
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/clear":
			if m, ok := conv.Clear().Last(); ok {
				show(m)
			}
			continue
		case strings.HasPrefix(line, "/do"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/do")))
			if err != nil || n < 1 || n > len(actions) {
				fmt.Fprintf(out, "no action %q; the last reply offers %d\n", strings.TrimSpace(strings.TrimPrefix(line, "/do")), len(actions))
				continue
			}
			res := conv.ExecuteAction(ctx, actions[n-1])
			if res.Navigate != "" {
				fmt.Fprintf(out, "\n-> navigate to %s\n\n", res.Navigate)
			}
			show(res.Messages...)
			continue
		}
		show(conv.Send(ctx, line)...)
	}
}

func printMessage(out io.Writer, m chat.Message) {
	fmt.Fprintf(out, "\n%s\n", m.Content)
	for i, a := range m.Actions {
		fmt.Fprintf(out, "  [%d] %s (%s)\n", i+1, a.Label, a.Verb)
	}
	if len(m.Actions) > 0 {
		fmt.Fprintln(out, "  run one with /do N")
	}
	if len(m.QuickReplies) > 0 {
		fmt.Fprintf(out, "  try: %s\n", strings.Join(m.QuickReplies, " | "))
	}
	fmt.Fprintln(out)
}
