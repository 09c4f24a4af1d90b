package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datasync/internal/di"
	"datasync/internal/models"
	"datasync/internal/structures"
	"github.com/spf13/cobra"
)

var flags structures.CliFlags

func main() {
	rootCmd := &cobra.Command{
		Use:           "datasync",
		Short:         "Sync paginated API categories into local snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "enable debug logging to the console")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitApp(&flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext()
			defer stop()

			if category != "" {
				c, err := models.ParseCategory(category)
				if err != nil {
					return err
				}
				n, err := app.RunCategory(ctx, c)
				if err != nil {
					return err
				}
				fmt.Printf("%s: saved %d records\n", c, n)
				return nil
			}

			report, err := app.RunOnce(ctx)
			printReport(report)
			return err
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only sync this category (tracks, users, listen_history)")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a schedule and expose the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitApp(&flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext()
			defer stop()

			return app.Serve(ctx)
		},
	}
}

func printReport(report *models.RunReport) {
	if report == nil {
		return
	}
	fmt.Printf("Run %s (%s)\n", report.ID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, r := range report.Results {
		status := "ok"
		switch {
		case r.Error != "":
			status = "failed: " + r.Error
		case r.Skipped:
			status = "skipped (no data)"
		}
		fmt.Printf("  %-15s fetched=%-6d saved=%-6d inserted=%-6d updated=%-6d %s\n",
			r.Name, r.Fetched, r.Saved, r.Inserted, r.Updated, status)
	}
}
