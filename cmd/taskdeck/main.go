// Command taskdeck is a multi-user task tracker with a line-oriented CLI
// and a gocui terminal GUI over one shared manager.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/cli"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/manager"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		interfaceFlag string
		databaseFlag  string
		configFlag    string
	)

	cmd := &cobra.Command{
		Use:          "taskdeck",
		Short:        "Multi-user to-do list",
		Long:         "taskdeck tracks tasks for multiple users on one machine,\nwith a command-line interface and a terminal GUI sharing one database.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(interfaceFlag, databaseFlag, configFlag)
		},
	}

	cmd.Flags().StringVarP(&interfaceFlag, "interface", "i", "gui", "interface type (cli or gui)")
	cmd.Flags().StringVarP(&databaseFlag, "database", "d", "", "database file path (default todo_app.db)")
	cmd.Flags().StringVar(&configFlag, "config", "", "config file path")

	return cmd
}

func run(interfaceName, databasePath, configPath string) error {
	// Optional .env next to the binary's working directory.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		return err
	}
	if databasePath != "" {
		cfg.Database = databasePath
	}

	if interfaceName != "cli" && interfaceName != "gui" {
		return fmt.Errorf("unknown interface %q (valid: cli, gui)", interfaceName)
	}

	if err := config.EnsureDir(cfg.Database); err != nil {
		slog.Error("create database directory", "path", cfg.Database, "error", err)
		return err
	}

	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		slog.Error("open database", "path", cfg.Database, "error", err)
		return err
	}
	store := db.NewStore(sqlDB)
	store.SetRetryPolicy(cfg.RetryAttempts, cfg.RetryDelay)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("close database", "error", err)
		}
	}()

	sessions := session.NewStore(cfg.SessionTTL)
	mgr := manager.New(store, sessions)

	if interfaceName == "cli" {
		return cli.New(mgr).Run()
	}
	return tui.Run(mgr, cfg.RefreshInterval)
}
