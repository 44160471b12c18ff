package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/server"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :5000)")
	serveCmd.Flags().Bool("seed", false, "Write demo users, stories and activity into an empty database")
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		wrote, err := a.store.Seed(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Info("demo data", zap.Bool("written", wrote))
	}

	srv := server.New(a.serverDeps(), log, server.WithRequestTimeout(cfg.Server.RequestTimeout))
	return srv.Run(ctx, cfg.Server.Addr, shutdownGrace)
}
