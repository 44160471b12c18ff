package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/vibe"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		p, err := a.dash.Parent(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("load dashboard: %w", err)
		}
		c, err := a.dash.Child(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("load dashboard: %w", err)
		}

		sep := strings.Repeat("─", 48)
		fmt.Printf("%s (%s)\n%s\n", p.User.DisplayName, p.User.Username, sep)
		fmt.Printf("Reading time:     %d min\n", p.Stats.TotalReadingTime)
		fmt.Printf("Reading accuracy: %d%%\n", p.Stats.ReadingAccuracy)
		fmt.Printf("Math problems:    %d\n", p.Stats.TotalMathProblems)
		fmt.Printf("Math accuracy:    %d%%\n", p.Stats.MathAccuracy)
		fmt.Printf("Streak:           %d days\n", p.Stats.CurrentStreak)

		g := c.TodayGoals
		fmt.Printf("\nToday\n%s\n", sep)
		fmt.Printf("Reading: %d/%d min\n", g.ReadingMinutes, g.TargetReadingMinutes)
		fmt.Printf("Math:    %d/%d problems\n", g.MathProblems, g.TargetMathProblems)

		if len(p.RecentVibes) > 0 {
			fmt.Printf("\nRecent vibes\n%s\n", sep)
			for _, v := range p.RecentVibes {
				fmt.Printf("%s  %s\n", v.RecordedAt.Local().Format("2006-01-02 15:04"), vibe.State(v.State).Label())
			}
		}
		for _, ach := range c.RecentAchievements {
			fmt.Println("★", ach)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("user", store.DemoChildID, "Child user ID")
}
