package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/copycats/copycat-api/internal/app"
	"github.com/copycats/copycat-api/internal/config"
	"github.com/copycats/copycat-api/internal/logging"
	"github.com/copycats/copycat-api/internal/maintenance"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "copycatctl",
		Short:        "Maintenance jobs for the CopyCats question base",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			envFile, _ := cmd.Flags().GetString("env-file")
			if envFile != "" {
				_ = godotenv.Load(envFile)
			}
		},
	}
	root.PersistentFlags().String("env-file", "configs/.env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		jobCmd("cleanup-explanations", "Convert $-delimited math in explanations to \\( \\) and \\[ \\]",
			(*maintenance.Runner).CleanupExplanations),
		jobCmd("clean-test-numbers", "Strip whitespace and line breaks from test numbers",
			(*maintenance.Runner).CleanTestNumbers),
		jobCmd("copy-skills", "Copy skill links from each original question onto its clones",
			(*maintenance.Runner).CopySkills),
		jobCmd("normalize-clone-refs", "Rewrite legacy clone references to the \"<test> - <question>\" form",
			(*maintenance.Runner).NormalizeCloneReferences),
		issueTokenCmd(),
	)
	return root
}

type job func(*maintenance.Runner, context.Context) (maintenance.Report, error)

func jobCmd(use, short string, run job) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)

			runner := maintenance.NewRunner(app.NewAirtableClient(cfg, logger), maintenance.Options{
				QuestionsTable: cfg.Airtable.QuestionsTable,
				ClonesTable:    cfg.Airtable.ClonesTable,
				DryRun:         dryRun,
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := run(runner, ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Errors > 0 {
				return fmt.Errorf("%s finished with %d errors", use, report.Errors)
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Compute changes without writing them")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token <subject>",
		Short: "Mint an admin bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			token, err := app.NewTokenManager(cfg).Issue(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	return cmd
}

func cliLogger(cfg *config.App) zerolog.Logger {
	return logging.NewWithWriter(os.Stderr, cfg.Name, cfg.Env)
}
