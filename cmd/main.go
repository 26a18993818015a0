package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-boards/internal/app"
	"github.com/adanyl0v/go-boards/internal/storage/migrations"
)

func main() {
	app.InitDefaultLogger()

	rootCmd := &cobra.Command{
		Use:          "boards",
		Short:        "Boards API server and client",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(moveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app.MustReadEnv()
			app.MustInitApplicationLogger()

			app.MustOpenStorage()
			defer app.CloseStorage()

			app.MustConnectRedis()
			defer app.DisconnectRedis()

			app.MustListenAndServeHTTP()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations against the configured storage",
		ValidArgs: []string{migrations.CommandUp, migrations.CommandDown, migrations.CommandStatus},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			app.MustReadEnv()
			app.MustInitApplicationLogger()

			app.MustMigrate(args[0])
		},
	}
}
