package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dinner-agent/internal/config"
	"dinner-agent/internal/domain"
	"dinner-agent/internal/tui"
	"dinner-agent/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dinner-agent",
		Short:        "Chat with an assistant that recommends what to eat for dinner",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(a *app) error {
				a.chat.Greet()
				return tui.Run(cmd.Context(), tui.New(cmd.Context(), a.handler, a.transcript, a.llm.Model()))
			})
		},
	}
	root.AddCommand(newAskCmd(), newPromptCmd())
	return root
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <preferences...>",
		Short: "Send one request and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				out := a.handler.Ask(cmd.Context(), strings.Join(args, " "))
				if out.Outcome == usecase.OutcomeIgnored {
					return errors.New("nothing to ask")
				}
				printReply(cmd.OutOrStdout(), out.Reply)
				return out.Err
			})
		},
	}
}

func newPromptCmd() *cobra.Command {
	prompt := &cobra.Command{
		Use:   "prompt",
		Short: "Show or change the system prompt",
	}

	prompt.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the active system prompt",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, false, func(a *app) error {
					text, isDefault := a.handler.Prompt()
					if isDefault {
						fmt.Fprintln(cmd.ErrOrStderr(), "(default)")
					}
					fmt.Fprintln(cmd.OutOrStdout(), text)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <text...>",
			Short: "Store a new system prompt",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, false, func(a *app) error {
					status := a.handler.ApplyPrompt(cmd.Context(), strings.Join(args, " "))
					return reportStatus(cmd.OutOrStdout(), status.OK, status.Note)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove the stored prompt and use the default",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, false, func(a *app) error {
					status := a.handler.ResetPrompt(cmd.Context())
					return reportStatus(cmd.OutOrStdout(), status.OK, status.Note)
				})
			},
		},
	)
	return prompt
}

// withApp loads configuration, sets up logging and wires the application for
// the duration of fn. Interactive runs keep logs off the terminal.
func withApp(cmd *cobra.Command, interactive bool, fn func(*app) error) error {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, closeLog, err := cfg.OpenLogOutput(interactive)
	if err != nil {
		return err
	}
	defer closeLogged(cmd.ErrOrStderr(), "log file", closeLog)
	logger := cfg.NewLogger(logOut)

	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", "err", err)
		return err
	}
	defer a.Close()

	return fn(a)
}

// closeLogged reports close failures on w. The log file itself may be the
// thing failing, so slog is not used here.
func closeLogged(w io.Writer, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		fmt.Fprintf(w, "close %s: %v\n", what, err)
	}
}

func printReply(w io.Writer, msg domain.Message) {
	if msg.Text == "" {
		return
	}
	fmt.Fprintln(w, msg.Text)
}

func reportStatus(w io.Writer, ok bool, note string) error {
	if !ok {
		return errors.New(note)
	}
	fmt.Fprintln(w, note)
	return nil
}
