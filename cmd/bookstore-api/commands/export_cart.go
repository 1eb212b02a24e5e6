package commands

import (
	"errors"
	"fmt"

	"github.com/aq2208/bookstore-api/cmd/bookstore-api/app"
	"github.com/aq2208/bookstore-api/internal/adapter/observ"
	"github.com/spf13/cobra"
)

var (
	exportUser  string
	exportPurge bool
)

var exportCartCmd = &cobra.Command{
	Use:   "export-cart",
	Short: "Write a user's cart to the export directory",
	Long: `Write the given user's shopping cart as a JSON document into export.directory.

With --purge the cart is deleted after a successful export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportUser == "" {
			return errors.New("--user is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, cleanup, err := app.InitWithConfig(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		path, err := a.Exporter.ExportCartForUser(cmd.Context(), exportUser)
		observ.RecordExport(observ.ModeCLI, err)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if exportPurge {
			if err := a.Carts.DeleteByUserID(cmd.Context(), exportUser); err != nil {
				return fmt.Errorf("purge cart: %w", err)
			}
		}
		return nil
	},
}

func init() {
	exportCartCmd.Flags().StringVarP(&exportUser, "user", "u", "", "User whose cart to export")
	exportCartCmd.Flags().BoolVar(&exportPurge, "purge", false, "Delete the cart after exporting")
	rootCmd.AddCommand(exportCartCmd)
}
