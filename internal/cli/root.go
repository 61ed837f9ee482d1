// Package cli is the operator's view of the portfolio: every command mounts
// the content store, drives one editor session and prints the result.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"portfolio/cms/internal/config"
	"portfolio/cms/internal/content"
	"portfolio/cms/internal/contentstore"
	"portfolio/cms/internal/editor"
	"portfolio/cms/internal/gateway"
)

// Options wires the commands to their environment. Tests swap IO and Tokens.
type Options struct {
	Config config.Admin
	IO     SurveyIO
	Tokens *KeyringTokens
	Logger *slog.Logger
	// Confirm answers delete prompts; nil asks on the terminal.
	Confirm editor.Confirmer
}

type workspace struct {
	client  *gateway.Client
	store   *contentstore.Store
	session *editor.Session
}

// NewRootCommand builds the admin command tree.
func NewRootCommand(opts Options) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:           "portfolio-admin",
		Short:         "Edit the portfolio from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger == nil {
				level := slog.LevelWarn
				if verbose {
					level = slog.LevelDebug
				}
				opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			}
			if opts.Tokens == nil {
				opts.Tokens = NewKeyringTokens(opts.Config.KeyringUser, opts.Config.Token)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Config.BaseURL, "api-url", opts.Config.BaseURL, "Portfolio API base URL")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")

	o := &opts
	cmd.AddCommand(
		newLoginCommand(o),
		newLogoutCommand(o),
		newShowCommand(o),
		newEditCommand(o),
		newDeleteCommand(o),
		newToggleFeaturedCommand(o),
		newUploadCommand(o),
		newRefreshCommand(o),
	)
	return cmd
}

func (o *Options) client() (*gateway.Client, error) {
	timeout := o.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gateway.NewClient(o.Config.BaseURL,
		gateway.WithHTTPClient(&http.Client{Timeout: timeout}),
		gateway.WithTokenSource(o.Tokens),
		gateway.WithLogger(o.Logger),
	)
}

// mount builds the session and performs the initial load.
func (o *Options) mount(ctx context.Context, confirm editor.Confirmer) (*workspace, error) {
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	store := contentstore.New(client, o.Logger)
	session := editor.New(store, gateway.New(client, store, o.Logger), confirm, o.Logger)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return &workspace{client: client, store: store, session: session}, nil
}

// banner prints the session's error line and hands err back for the exit code.
func banner(w io.Writer, session *editor.Session, err error) error {
	if err == nil {
		return nil
	}
	shown := err
	if session != nil && session.Err() != nil {
		shown = session.Err()
	}
	fmt.Fprintf(w, "Error: %s\n", content.Message(shown))
	if gateway.IsUnauthorized(err) {
		fmt.Fprintln(w, "Your session has expired; run `portfolio-admin login`.")
	}
	return &reportedError{err: err}
}

// reportedError has already been printed by banner.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs the command tree and returns the process exit code.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		}
		return 1
	}
	return 0
}
