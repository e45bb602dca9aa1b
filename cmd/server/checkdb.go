package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"todo-list/database"
	"todo-list/model"

	"github.com/spf13/cobra"
)

// checkDBTimeout 比服务启动时更宽松
const checkDBTimeout = 10 * time.Second

func newCheckDBCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Test the database connection and write a probe todo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			sc := storeConfig(cfg)
			sc.ConnectTimeout = checkDBTimeout
			return checkDB(cmd.Context(), cmd.OutOrStdout(), sc)
		},
	}
}

func checkDB(ctx context.Context, out io.Writer, cfg database.StoreConfig) error {
	if cfg.URL == "" {
		return errors.New("no database URL configured (set MONGODB_URI or TODO_DATABASE_URL)")
	}

	fmt.Fprintln(out, "Testing database connection...")
	fmt.Fprintf(out, "Connection string: %s\n\n", database.MaskURL(cfg.URL))

	store, err := database.OpenDurable(ctx, cfg)
	if err != nil {
		fmt.Fprintln(out, "FAILED: could not connect to the database")
		fmt.Fprintln(out, "What to check:")
		fmt.Fprintln(out, "  1. The database host allows connections from this machine")
		fmt.Fprintln(out, "  2. The username and password in the connection string")
		fmt.Fprintln(out, "  3. The database server is running")
		return err
	}
	fmt.Fprintf(out, "SUCCESS: connected (%s)\n", store.Kind())

	if ms, ok := store.(*database.MongoStore); ok {
		fmt.Fprintf(out, "Database: %s\n", ms.DatabaseName())
	}

	probe := model.NewTodo("Test connection todo")
	writeCtx, cancel := context.WithTimeout(ctx, checkDBTimeout)
	defer cancel()

	if err := store.Insert(writeCtx, probe); err != nil {
		_ = store.Close(context.Background())
		return fmt.Errorf("database write test failed: %w", err)
	}
	fmt.Fprintf(out, "Database write test: PASSED (id %s)\n", probe.ID)

	if err := store.Close(writeCtx); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	fmt.Fprintln(out, "Connection closed")
	return nil
}
