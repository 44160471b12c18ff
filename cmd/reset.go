package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long:  "Delete a child's sessions, progress, vibes, chats and quizzes. The account and stories stay.",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Reset(cmd.Context(), userID); err != nil {
			return fmt.Errorf("reset %s: %w", userID, err)
		}
		fmt.Printf("Learner data for %s cleared.\n", userID)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("user", "", "User ID to reset (required)")
	_ = resetCmd.MarkFlagRequired("user")
}
