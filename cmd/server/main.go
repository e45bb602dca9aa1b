// @title Todo List API
// @version 1.0
// @description Todo CRUD backed by a document store with an in-memory fallback.
// @BasePath /api
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// 全局参数
type rootFlags struct {
	configPath  string
	port        int
	databaseURL string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "todo-server",
		Short:         "Todo list API server",
		Long:          "Todo list API backed by MongoDB or SQLite, falling back to in-memory storage when the database is unreachable at startup.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().IntVarP(&flags.port, "port", "p", 0, "listen port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", "", "database connection string (overrides MONGODB_URI)")

	serveCmd := newServeCommand(flags)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCheckDBCommand(flags))

	// 不带子命令时直接启动服务
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}
