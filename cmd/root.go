package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/config"
	"github.com/abhisek/vibekids/internal/logger"
	"github.com/abhisek/vibekids/internal/store"
)

var (
	v   *viper.Viper
	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vibekids",
	Short: "Reading and math companion for kids",
	Long:  "Vibekids serves the reading, math practice and dashboard API for young learners.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: vibekids.yaml in the usual places)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides VIBEKIDS_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig layers flags over environment, file and defaults, then
// installs the logger.
func loadConfig(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	v = config.New(file)

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"db.path":     "db",
		"log.level":   "log-level",
		"server.addr": "addr",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log = l
	zap.ReplaceGlobals(l)
	return nil
}

// resolveDBPath returns the configured database path, falling back to the
// default data directory.
func resolveDBPath() (string, error) {
	if p := cfg.DB.Path; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
