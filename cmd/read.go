package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/prompts"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/vibe"
)

var readCmd = &cobra.Command{
	Use:   "read <story-id>",
	Short: "Auto-play a story word by word, then take its quiz",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	readCmd.Flags().String("user", store.DemoChildID, "Child user ID")
	readCmd.Flags().Int("section", 0, "Section to read (0-based)")
	readCmd.Flags().Float64("speed", 1, "Playback speed (0.5 to 3)")
	readCmd.Flags().Bool("no-quiz", false, "Skip the quiz after reading")
	readCmd.Flags().Bool("no-ask", false, "Skip the questions prompt after reading")
}

func runRead(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	section, _ := cmd.Flags().GetInt("section")
	speed, _ := cmd.Flags().GetFloat64("speed")
	noQuiz, _ := cmd.Flags().GetBool("no-quiz")
	noAsk, _ := cmd.Flags().GetBool("no-ask")

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	story, err := a.store.Stories().Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load story %s: %w", args[0], err)
	}

	started := time.Now().UTC()
	sess := &store.Session{UserID: userID, Type: store.SessionReading, StartedAt: started}
	if err := a.store.Sessions().Create(ctx, sess); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	tracker := reading.NewTracker(cfg.ReadingTracker(), &reading.StoreCheckpointer{
		Repo:      a.store.ReadingProgress(),
		UserID:    userID,
		SessionID: sess.ID,
		Accuracy:  100,
	}, log)
	tracker.LoadStory(reading.DocumentFromStory(story))
	if err := tracker.SwitchSection(section); err != nil {
		return err
	}
	tracker.SetSpeed(speed)

	_, sec := tracker.Section()
	fmt.Printf("── %s ──\n\n", sec.Title)

	words := tracker.Words()
	player := reading.NewPlayer(tracker, nil)
	player.OnAdvance = func(s reading.Snapshot) {
		if s.Index > 0 && s.Index <= len(words) {
			fmt.Print(words[s.Index-1], " ")
		}
	}
	tracker.Play()
	if err := player.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Println()
	fmt.Println()

	snap := tracker.Snapshot()
	now := time.Now().UTC()
	sess.EndedAt = &now
	sess.Duration = int(now.Sub(started).Minutes())
	sess.Completed = tracker.SectionComplete()
	if err := a.store.Sessions().Update(ctx, sess); err != nil {
		log.Warn("end session", zap.Error(err))
	}

	state := vibe.FromReading(snap.Progress()*100, false, 0)
	if _, err := a.recorder.Record(ctx, userID, sess.ID, state, ""); err != nil {
		log.Warn("record vibe", zap.Error(err))
	}
	fmt.Printf("You read %d of %d words. Feeling: %s\n\n", snap.Index, snap.Total, state.Label())

	var sectionPtr *int
	if len(story.Sections) > 0 {
		sectionPtr = &section
	}
	lines := bufio.NewScanner(os.Stdin)
	if !noAsk {
		if err := askAbout(ctx, a.tutor, a.store.Chat(), userID, story, sectionPtr, snap.Index, lines, os.Stdout); err != nil {
			return err
		}
	}
	if noQuiz || !sess.Completed {
		return nil
	}
	in := quiz.GenerateInput{UserID: userID, StoryID: story.ID, Section: sectionPtr}
	return takeQuiz(ctx, a.quiz, in, lines, os.Stdout)
}

// askAbout answers questions typed after reading until a blank line. Each
// answer sees the stored conversation plus what was asked here.
func askAbout(ctx context.Context, svc *tutor.Service, chat store.ChatRepo, userID string, story *store.Story,
	section *int, pos int, lines *bufio.Scanner, out io.Writer) error {
	msgs, err := chat.List(ctx, userID, story.ID)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	history := tutor.ToTurns(msgs)

	fmt.Fprintln(out, "Any questions about the story? Type one, or press Enter to go on.")
	for {
		fmt.Fprint(out, "> ")
		if !lines.Scan() {
			return nil
		}
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			fmt.Fprintln(out)
			return nil
		}
		answer, err := svc.Ask(ctx, tutor.AskRequest{
			Story:    story,
			Section:  section,
			Position: &pos,
			History:  history,
			Message:  text,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n\n", answer)
		history = append(history,
			prompts.Turn{Role: string(store.ChatUser), Content: text},
			prompts.Turn{Role: string(store.ChatAssistant), Content: answer},
		)
	}
}

// takeQuiz asks each question on lines until it gets a valid choice, then
// submits. A failed quiz can be swapped for a new one.
func takeQuiz(ctx context.Context, svc *quiz.Service, in quiz.GenerateInput, lines *bufio.Scanner, out io.Writer) error {
	attempt := quiz.NewAttempt(0)
	runner := quiz.NewRunner(svc, attempt)

	for {
		done := make(chan bool, 1)
		if err := runner.RequestQuiz(ctx, in, done); err != nil {
			return err
		}
		<-done

		snap := attempt.Snapshot()
		if snap.Phase != quiz.Answering {
			log.Warn("generate quiz", zap.Error(snap.Err))
			fmt.Fprintln(out, "Oops! Your quiz isn't ready yet.")
			if !confirm(lines, out, "Try again? [y/N] ") {
				return nil
			}
			continue
		}

		for i, q := range snap.Questions {
			fmt.Fprintf(out, "── Question %d/%d ──\n%s\n", i+1, len(snap.Questions), q.Question)
			for j, opt := range q.Options {
				fmt.Fprintf(out, "  %d) %s\n", j+1, opt)
			}
			for {
				fmt.Fprint(out, "\nYour answer: ")
				if !lines.Scan() {
					fmt.Fprintln(out, "\nYour quiz will wait for you next time.")
					return nil
				}
				n, err := strconv.Atoi(strings.TrimSpace(lines.Text()))
				if err == nil && attempt.Select(i, n-1) == nil {
					break
				}
				fmt.Fprintf(out, "Please type a number from 1 to %d.\n", len(q.Options))
			}
			fmt.Fprintln(out)
		}

		res, err := runner.Submit(ctx)
		if err != nil {
			return fmt.Errorf("submit quiz: %w", err)
		}
		mark := "\033[31m✗\033[0m"
		if res.Passed {
			mark = "\033[32m✓\033[0m"
		}
		fmt.Fprintf(out, "%s Score: %d/%d\n%s\n\n", mark, res.Score, res.TotalQuestions, res.Feedback)
		if res.Passed || !confirm(lines, out, "Try a new quiz? [y/N] ") {
			return nil
		}
		in.Fresh = true
	}
}

func confirm(lines *bufio.Scanner, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	if !lines.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(lines.Text()))
	return answer == "y" || answer == "yes"
}
