package commands

import (
	"os"

	"github.com/aq2208/bookstore-api/configs"
	"github.com/spf13/cobra"
)

var (
	envName   string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "bookstore-api",
	Short: "Bookstore catalog and shopping cart service",
	Long: `bookstore-api serves the book catalog and per-user shopping carts over HTTP.

Configuration is read from <config-dir>/base.yaml, overlaid with <config-dir>/<env>.yaml
and BOOKSTORE_* environment variables (nested keys joined with __).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", env, "Config environment overlay (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "Directory holding base.yaml and env overlays")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func loadConfig() (configs.Config, error) {
	return configs.Load(configDir, envName)
}
