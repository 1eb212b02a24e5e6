package commands

import (
	"fmt"

	"github.com/aq2208/bookstore-api/cmd/bookstore-api/app"
	"github.com/aq2208/bookstore-api/internal/adapter/repo"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MySQL tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.MySQL.DSN == "" {
			return fmt.Errorf("mysql.dsn is not configured")
		}

		db, err := app.OpenDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.Migrate(cmd.Context(), db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", len(repo.SchemaStatements()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
