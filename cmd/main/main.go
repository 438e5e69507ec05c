package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-gateway/src/auth"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/server"
	"market-gateway/src/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

const purgeInterval = time.Hour

// -----------------------------------------------------------------------------

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "market-gateway",
		Short:        "Cache-aside gateway for market data lookups",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/default.yaml", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(keysCmd(&configPath))
	rootCmd.AddCommand(fetchCmd(&configPath))
	rootCmd.AddCommand(configCmd(&configPath))
	return rootCmd
}

// -----------------------------------------------------------------------------

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := setupStore(ctx, cfg.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := bootstrapKeys(ctx, cfg.MConfig, store); err != nil {
				return fmt.Errorf("failed to bootstrap keys: %w", err)
			}

			provider, err := setupProvider(cfg.MConfig)
			if err != nil {
				return err
			}

			gw := setupGateway(cfg.MConfig, store, provider)
			srv := server.NewAPIServer(cfg.MConfig, gw, provider.Name(), logger.NewLogger("APIServer"))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				appLogger.Info("Shutting down...")
				return srv.Stop()
			})
			g.Go(func() error {
				storage.RunPurgeLoop(gctx, store, purgeInterval, appLogger)
				return nil
			})

			err = g.Wait()
			appLogger.Info("Server stopped")
			return err
		},
	}
}

// -----------------------------------------------------------------------------

func keysCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage authorized API keys",
	}
	cmd.AddCommand(keysAddCmd(configPath))
	cmd.AddCommand(keysCheckCmd(configPath))
	return cmd
}

func keysAddCmd(configPath *string) *cobra.Command {
	var (
		key  string
		note string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Authorize a key (generated when --key is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := setupStore(ctx, cfg.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer store.Close()

			if key == "" {
				key = uuid.NewString()
			}

			var expiration *time.Time
			if ttl > 0 {
				exp := time.Now().Add(ttl).UTC()
				expiration = &exp
			}

			gate := auth.NewKeyGate(store, logger.NewLogger("KeyGate"))
			if err := gate.AddKey(ctx, key, expiration, note); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "key value to authorize")
	cmd.Flags().StringVar(&note, "note", "", "free-form note stored with the key")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expire the key after this duration (0 = never)")
	return cmd
}

func keysCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check KEY",
		Short: "Report whether a key is authorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := setupStore(ctx, cfg.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer store.Close()

			gate := auth.NewKeyGate(store, logger.NewLogger("KeyGate"))
			ok, err := gate.IsAuthorized(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %s is not authorized", auth.Mask(args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "authorized")
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "write PATH",
		Short: "Write the configuration with defaults and environment overrides applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	})
	return cmd
}

// -----------------------------------------------------------------------------

func fetchCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Query the configured provider directly (no cache, no authorization)",
	}

	var credential string
	instrument := &cobra.Command{
		Use:   "instrument SYMBOL",
		Short: "Fetch an instrument snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, *configPath, func(ctx context.Context, p interfaces.IMarketDataProvider) (interface{}, error) {
				return p.FetchInstrumentSnapshot(ctx, args[0], credential)
			})
		},
	}
	instrument.Flags().StringVar(&credential, "credential", "", "credential forwarded to providers that take one")

	option := &cobra.Command{
		Use:   "option TICKER",
		Short: "Fetch an option contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, *configPath, func(ctx context.Context, p interfaces.IMarketDataProvider) (interface{}, error) {
				return p.FetchOptionContract(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(instrument, option)
	return cmd
}

// -----------------------------------------------------------------------------

func runFetch(cmd *cobra.Command, configPath string, fetch func(ctx context.Context, p interfaces.IMarketDataProvider) (interface{}, error)) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	provider, err := setupProvider(cfg.MConfig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.DataSource.ProviderTimeoutSeconds)*time.Second)
	defer cancel()

	result, err := fetch(ctx, provider)
	if err != nil {
		return fmt.Errorf("%s: %w", provider.Name(), err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
