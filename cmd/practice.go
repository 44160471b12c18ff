package cmd

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/mathpractice"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Answer math problems in the terminal",
	Long: `Serve math problems one at a time, continuing from the child's last
level and streak. Enter q to stop; progress is saved when you leave.`,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().String("user", store.DemoChildID, "Child user ID")
	practiceCmd.Flags().Int("level", 0, "Start at this level instead of the saved one")
	rootCmd.AddCommand(practiceCmd)
}

func runPractice(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	level, _ := cmd.Flags().GetInt("level")

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	var p *mathpractice.Practice
	history, err := a.store.MathProgress().ListByUser(ctx, userID)
	switch {
	case err != nil:
		return fmt.Errorf("load math progress: %w", err)
	case level > 0:
		p = mathpractice.NewPractice(level, rng)
	case len(history) > 0:
		p = mathpractice.Resume(history[0], rng)
	default:
		p = mathpractice.NewPractice(mathpractice.MinLevel, rng)
	}

	started := time.Now().UTC()
	sess := &store.Session{UserID: userID, Type: store.SessionMath, StartedAt: started}
	if err := a.store.Sessions().Create(ctx, sess); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prob := p.Current()
		fmt.Printf("Level %d: %s = ", p.Stats().Level, prob)
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "q" {
			break
		}
		if input == "?" {
			fmt.Println("Hint:", prob.Hint())
			continue
		}

		out, err := p.Answer(input)
		if err != nil {
			fmt.Println("Please type a number.")
			continue
		}
		feedback, err := a.tutor.MathFeedback(ctx, tutor.MathFeedbackRequest{
			Problem:       prob.String(),
			UserAnswer:    input,
			CorrectAnswer: fmt.Sprint(prob.Answer),
			IsCorrect:     out.Correct,
		})
		if err != nil {
			log.Warn("math feedback", zap.Error(err))
		}
		if out.Correct {
			fmt.Printf("\033[32m✓\033[0m %s (streak %d)\n", feedback, out.Streak)
		} else {
			fmt.Printf("\033[31m✗\033[0m %s The answer was %d.\n", feedback, prob.Answer)
		}
		if out.LeveledUp {
			fmt.Println("Level up!")
		}
		fmt.Println()

		if _, err := a.recorder.Record(ctx, userID, sess.ID, p.Stats().Vibe(), ""); err != nil {
			log.Warn("record vibe", zap.Error(err))
		}
	}

	stats := p.Stats()
	now := time.Now().UTC()
	sess.EndedAt = &now
	sess.Duration = int(now.Sub(started).Minutes())
	sess.Completed = true
	if err := a.store.Sessions().Update(ctx, sess); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	snap := p.Snapshot(userID, sess.ID)
	snap.UpdatedAt = now
	if err := a.store.MathProgress().Create(ctx, &snap); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	fmt.Printf("── %d/%d correct (%d%%), best streak %d ──\n",
		stats.Correct, stats.Attempted, stats.Accuracy(), stats.BestStreak)
	return nil
}
