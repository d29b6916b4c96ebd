package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/kanban/internal/auth"
	"github.com/gosuda/kanban/internal/cli"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/engine"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kanban",
		Short:         "Kanban board client",
		Long:          "Kanban shows and edits a board kept in a remote card store. Edits apply at once and roll back if the store refuses them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.SetupLogging(cmd.ErrOrStderr())
		},
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newBoardCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kanban %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func newBoardCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}

			sess, err := cli.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Coordinator.Hydrate(cmd.Context()); err != nil {
				return err
			}

			view := sess.Coordinator.View()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			cli.NewRenderer(cmd.OutOrStdout()).Show(view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board as JSON")
	return cmd
}

func newShellCmd() *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit the board interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("policy") {
				if cfg.OverlapPolicy, err = engine.ParsePolicy(policy); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			renderer := cli.NewRenderer(cmd.OutOrStdout(), cli.WithQuietBoard())
			sess, err := cli.Open(ctx, cfg, engine.WithObserver(renderer))
			if err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					log.Warn().Err(err).Msg("closing session")
				}
			}()

			if err := sess.Coordinator.Hydrate(ctx); err != nil {
				return err
			}

			log.Debug().Str("transport", cfg.Transport).Stringer("policy", cfg.OverlapPolicy).Msg("shell started")
			return cli.NewShell(sess.Coordinator, renderer).Run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "reject", `overlap policy: "reject" or "last-wins"`)
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		clientID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a service token with KANBAN_JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("KANBAN_JWT_SECRET")
			if secret == "" {
				return errors.New("KANBAN_JWT_SECRET is required")
			}
			tok, err := auth.IssueToken(secret, clientID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "kanban-cli", "client id written to the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func execute(cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
