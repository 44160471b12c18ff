package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/app"
	"github.com/abhisek/vibekids/internal/store"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open the reading and math app in the terminal",
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().String("user", store.DemoChildID, "Child user ID")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")

	// The terminal UI owns the screen; log lines would tear it.
	log = zap.NewNop()
	zap.ReplaceGlobals(log)

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.Seed(cmd.Context(), a.now()); err != nil {
		return err
	}
	if _, err := a.store.Users().Get(cmd.Context(), userID); err != nil {
		return err
	}
	return app.Run(a.screenDeps(userID))
}
