package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haimskira/net-ops-v3/internal/config"
	"github.com/haimskira/net-ops-v3/internal/device"
	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
	"github.com/haimskira/net-ops-v3/internal/resolver"
	"github.com/haimskira/net-ops-v3/internal/syncer"
)

var (
	configPath string
	dbDialect  string
	dbDSN      string
	logLevel   string
	logFile    string

	snapshotPath string
	interval     time.Duration

	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netops",
		Short: "Firewall inventory reconciliation and approval engine",
		Long: `netops keeps a local relational inventory of firewall address objects,
service objects and security rules in sync with a device configuration
snapshot, and drives the request/approve workflow for new objects and rules.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbDialect != "" {
				cfg.Database.Dialect = dbDialect
			}
			if dbDSN != "" {
				cfg.Database.DSN = dbDSN
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFile != "" {
				cfg.Log.File = logFile
			}
			if snapshotPath == "" {
				snapshotPath = cfg.Snapshot
			}
			if !cmd.Flags().Changed("interval") && cfg.Sync.Interval > 0 {
				interval = cfg.Sync.Interval.Std()
			}
			slog.SetDefault(setupLogger(cfg.Log.Level, cfg.Log.File))
			return cfg.Validate()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "netops.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dbDialect, "db-dialect", "", "Database dialect: 'sqlite' or 'mysql' (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", "", "Database connection string (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	rootCmd.AddCommand(newSyncCmd(), newDaemonCmd(), newInventoryCmd(), newShadowCmd(),
		newRequestCmd(), newApproveCmd(), newRejectCmd())
	return rootCmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single full reconciliation from a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" {
				return fmt.Errorf("a snapshot file is required (--snapshot or config)")
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			source := device.NewFileSource(snapshotPath)
			snapshot, err := source.FetchSnapshot()
			if err != nil {
				return fmt.Errorf("fetching snapshot: %w", err)
			}
			engine := syncer.New(store, source)
			if err := engine.SyncAll(cmd.Context(), snapshot); err != nil {
				return err
			}
			slog.Info("sync complete", "at", engine.LastSync())
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Device snapshot file (JSON or YAML)")
	return cmd
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Periodically reconcile the inventory until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" {
				return fmt.Errorf("a snapshot file is required (--snapshot or config)")
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			source := device.NewFileSource(snapshotPath)
			engine := syncer.New(store, source)
			slog.Info("daemon started", "interval", interval)
			engine.Run(ctx, source, interval)
			slog.Info("daemon stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Device snapshot file (JSON or YAML)")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Time between reconciliation runs")
	return cmd
}

func newInventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Print the synced rules with their resolved content",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			res := resolver.New(store)
			rules, err := store.ListRules(ctx)
			if err != nil {
				return err
			}
			for _, rule := range rules {
				srcs, err := resolvedAddresses(ctx, res, rule.ID, store.RuleSources)
				if err != nil {
					return err
				}
				dsts, err := resolvedAddresses(ctx, res, rule.ID, store.RuleDestinations)
				if err != nil {
					return err
				}
				svcs, err := store.RuleServices(ctx, rule.ID)
				if err != nil {
					return err
				}
				var ports []string
				for i := range svcs {
					ports = append(ports, res.ServiceContent(&svcs[i])...)
				}
				fmt.Printf("%s\t%s->%s\t%s\tsrc=%s dst=%s svc=%s\n",
					rule.Name, rule.FromZone, rule.ToZone, rule.Action,
					joinOrAny(srcs), joinOrAny(dsts), joinOrAny(ports))
			}
			return nil
		},
	}
}

func newShadowCmd() *cobra.Command {
	var (
		srcIP string
		dstIP string
		port  string
	)
	cmd := &cobra.Command{
		Use:   "shadow",
		Short: "Check whether an existing rule already allows the given flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			res := resolver.New(store)
			fromZone, err := res.DetectZone(ctx, srcIP)
			if err != nil {
				return err
			}
			toZone, err := res.DetectZone(ctx, dstIP)
			if err != nil {
				return err
			}
			names, err := res.ShadowingRules(ctx, resolver.ShadowCandidate{
				SourceIP:      srcIP,
				DestinationIP: dstIP,
				ServicePort:   port,
				FromZone:      fromZone,
				ToZone:        toZone,
			})
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("clear: no existing rule allows this traffic")
				return nil
			}
			fmt.Printf("shadowed by %d rule(s): %s\n", len(names), strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&srcIP, "src", "", "Source IP or object name")
	cmd.Flags().StringVar(&dstIP, "dst", "", "Destination IP or object name")
	cmd.Flags().StringVar(&port, "port", "", "Destination port")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dst")
	return cmd
}

func openStore(ctx context.Context) (*inventory.Store, error) {
	store, err := inventory.Open(cfg.Database.Dialect, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return store, nil
}

func resolvedAddresses(ctx context.Context, res *resolver.Resolver, ruleID uint,
	fetch func(context.Context, uint) ([]model.AddressObject, error)) ([]string, error) {
	objs, err := fetch(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := range objs {
		values, err := res.AddressContent(ctx, &objs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

func joinOrAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ",")
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// We don't log an error here because the logger isn't set up yet.
		// It will just fall back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
