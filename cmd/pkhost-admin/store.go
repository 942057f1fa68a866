// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pubky-x-project/pkhost/config"
	"github.com/pubky-x-project/pkhost/store"
	"github.com/pubky-x-project/pkhost/store/memory"
	"github.com/pubky-x-project/pkhost/store/migrate"
	"github.com/pubky-x-project/pkhost/store/postgres"
)

var storeMigrateCmd = &cobra.Command{
	Use:   "store-migrate",
	Short: "Apply pending PostgreSQL schema migrations",
	Long: `Connects to store.postgres_dsn from the loaded config and applies
every migration in store/migrate that the target database hasn't seen yet.
Refuses to run against an in-memory store configuration.`,
	RunE: runStoreMigrate,
}

var storePingCmd = &cobra.Command{
	Use:   "store-ping",
	Short: "Verify connectivity to the configured metadata store",
	RunE:  runStorePing,
}

func init() {
	rootCmd.AddCommand(storeMigrateCmd)
	rootCmd.AddCommand(storePingCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromFile(cfgPath)
	}
	return config.Load(config.DefaultLoaderOptions())
}

func openStoreFromConfig(ctx context.Context) (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Store.PostgresDSN == "" {
		return memory.New(), nil
	}
	return postgres.NewFromDSN(ctx, cfg.Store.PostgresDSN)
}

func runStoreMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.PostgresDSN == "" {
		return fmt.Errorf("store.postgres_dsn is empty; nothing to migrate for an in-memory store")
	}

	ctx := cmd.Context()
	pgStore, err := postgres.NewFromDSN(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() { _ = pgStore.Close() }()

	m := migrate.New(pgStore.Pool())
	if err := m.Apply(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	fmt.Println("Migrations applied.")
	return nil
}

func runStorePing(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Println("Store reachable.")
	return nil
}
