package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inr99/academy/config"
	"github.com/inr99/academy/internal/seed"
	"github.com/inr99/academy/pkg/database"
)

func root(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "academyctl",
		Short:        "INR99 Academy administration",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(migrateCmd(cfg, logger), seedCmd(cfg, logger))
	return rootCmd
}

func connect(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) (context.Context, *pgxpool.Pool, func(), error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, pool, func() { pool.Close(); stop() }, nil
}

func migrateCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the embedded SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, pool, done, err := connect(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer done()
			return database.Migrate(ctx, pool, logger)
		},
	}
}

func seedCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	var (
		dir    string
		files  []string
		policy string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load course manifests (taxonomy, course, lessons, assessments)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			override := seed.Policy(policy)
			if override != "" && !override.Valid() {
				return fmt.Errorf("--policy must be %s or %s", seed.PolicySkipExisting, seed.PolicyReplace)
			}
			paths, err := seed.Discover(dir, files)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no manifests found in %s", dir)
			}
			if dryRun {
				return validateOnly(cmd, paths)
			}

			ctx, pool, done, err := connect(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer done()

			reports, err := seed.NewLoader(seed.NewPgRunner(pool), logger).LoadFiles(ctx, paths, override)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				if r.Error != "" {
					fmt.Fprintf(out, "FAIL %s: %s\n", r.Source, r.Error)
					continue
				}
				fmt.Fprintf(out, "ok   %s: course %s, %d lessons, %d assessments inserted, %d skipped\n",
					r.Source, r.Course, r.LessonsInserted, r.AssessmentsInserted, r.Skipped)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seeds", "directory holding *.yaml manifests")
	cmd.Flags().StringSliceVar(&files, "file", nil, "manifest file names inside --dir (repeatable); default all")
	cmd.Flags().StringVar(&policy, "policy", "", "override every manifest's policy: skip-existing or replace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without touching the database")
	return cmd
}

func validateOnly(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, p := range paths {
		m, err := seed.ParseFile(p)
		if err == nil {
			err = m.Validate()
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", p, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", p)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d manifests invalid", failed, len(paths))
	}
	return nil
}
