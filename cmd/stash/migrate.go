package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/logger"
	sqlstore "github.com/MrSnakeDoc/stash/internal/store/sql"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			store, err := sqlstore.Open(cmd.Context(), cfg.DBDriver, cfg.DBDSN, log)
			if err != nil {
				return err
			}
			defer utils.CloseLogged(store, "database", log)

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			log.Info("schema up to date",
				logger.String("driver", cfg.DBDriver),
				logger.String("dsn", config.RedactDSN(cfg.DBDSN)))
			fmt.Fprintln(cmd.OutOrStdout(), "✅ schema up to date")
			return nil
		},
	}
}
