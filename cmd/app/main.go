package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"OmniTrackIQ/internal/di"
	"OmniTrackIQ/internal/repository"
	"OmniTrackIQ/internal/usecase"
	"OmniTrackIQ/pkg/config"
	pkgpg "OmniTrackIQ/pkg/postgres"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "omnitrackiq",
		Short: "Marketing analytics engine over the spend and order ledgers",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c
			return nil
		},
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	rootCmd.AddCommand(serveCmd(), schemaCmd(), invalidateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP API and the ledger events consumer",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	return app.Run(cmd.Context())
}

// schemaCmd creates the ledger tables for the configured driver.
func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the spend and order ledger tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			switch cfg.Ledger.Driver {
			case "postgres":
				pool, err := di.ProvidePostgresPool(cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := pkgpg.InitSchema(ctx, pool, repository.PostgresSchema); err != nil {
					return fmt.Errorf("postgres schema: %w", err)
				}
			default:
				client, err := di.ProvideClickHouseClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()
				if err := client.InitSchema(ctx, repository.ClickHouseSchema); err != nil {
					return fmt.Errorf("clickhouse schema: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ledger schema ready\n", cfg.Ledger.Driver)
			return nil
		},
	}
}

// invalidateCmd publishes a ledger.changed event so every instance drops the
// tenant's cached results.
func invalidateCmd() *cobra.Command {
	var tenant, ledger string
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Publish a ledger change event for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cfg.Kafka.Enabled {
				return fmt.Errorf("kafka is disabled")
			}
			producer, err := di.ProvideKafkaProducer(cfg)
			if err != nil {
				return err
			}
			defer producer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ev := usecase.LedgerChanged{TenantID: tenant, Ledger: ledger, At: time.Now().UTC()}
			if err := producer.Publish(ctx, cfg.Kafka.LedgerTopic, []byte(tenant), ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s change for tenant %s\n", ledger, tenant)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&ledger, "ledger", "spend", "ledger that changed: spend or orders")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
