package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aq2208/bookstore-api/cmd/bookstore-api/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background consumers",
	Long: `Run the HTTP API. When configured, also runs the RabbitMQ cart export worker,
the Kafka book ingest consumer and the gRPC health server.

Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.Run(ctx)
}
