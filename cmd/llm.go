package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect model calls made for quizzes, chat and feedback",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit, Purpose: purpose}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		writeAttempts(cmd.OutOrStdout(), events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show one attempt with its prompt and reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		writeAttempt(cmd.OutOrStdout(), e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how the gateway served each purpose, and what it cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return writeLLMStats(cmd.Context(), cmd.OutOrStdout(), s.EventRepo())
	},
}

// outcome names how an attempt ended.
func outcome(e store.LLMEvent) string {
	switch {
	case e.Success && e.Fallback:
		return "fallback"
	case e.Success:
		return "ok"
	case e.RateLimited:
		return "rate limited"
	default:
		return "failed"
	}
}

func writeAttempts(w io.Writer, events []store.LLMEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No model calls recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-19s  %-14s  %-24s  %3s  %-13s  %7s  %7s\n",
		"ID", "Time", "Purpose", "Model", "Try", "Outcome", "Tokens", "Ms")
	fmt.Fprintln(w, strings.Repeat("─", 104))
	for _, e := range events {
		try := "-"
		if e.Attempt > 0 {
			try = strconv.Itoa(e.Attempt)
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-14s  %-24s  %3s  %-13s  %7d  %7d\n",
			e.ID, e.Timestamp.Local().Format(timeLayout), e.Purpose, truncate(e.Model, 24),
			try, outcome(e), e.InputTokens+e.OutputTokens, e.LatencyMs)
	}
}

func writeAttempt(w io.Writer, e *store.LLMEvent) {
	fmt.Fprintf(w, "ID:        %d\n", e.ID)
	fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format(timeLayout))
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	fmt.Fprintf(w, "Model:     %s (via %s)\n", e.Model, e.Provider)
	if e.Attempt > 0 {
		fmt.Fprintf(w, "Attempt:   %d on this model\n", e.Attempt)
	}
	fmt.Fprintf(w, "Outcome:   %s\n", outcome(*e))
	fmt.Fprintf(w, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Fprintf(w, "Latency:   %dms\n", e.LatencyMs)
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", e.ErrorMessage)
	}
	writeSection(w, "PROMPT", e.RequestBody)
	writeSection(w, "REPLY", e.ResponseBody)
}

func writeSection(w io.Writer, name, body string) {
	sep := strings.Repeat("─", 60)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", sep, name, sep)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintln(w, body)
}

func writeLLMStats(ctx context.Context, w io.Writer, repo store.EventRepo) error {
	gateway, err := repo.GatewayUsageByPurpose(ctx)
	if err != nil {
		return fmt.Errorf("query gateway usage: %w", err)
	}
	if len(gateway) == 0 {
		fmt.Fprintln(w, "No model calls recorded yet.")
		return nil
	}

	rule := strings.Repeat("─", 78)
	fmt.Fprintln(w, "Gateway by Purpose")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-16s  %8s  %8s  %9s  %12s  %6s\n",
		"Purpose", "Attempts", "Answered", "Fallback", "Rate limited", "Failed")
	fmt.Fprintln(w, rule)
	var total store.GatewayUsage
	for _, u := range gateway {
		writeGatewayRow(w, u.Purpose, u)
		total.Attempts += u.Attempts
		total.Answered += u.Answered
		total.ByFallback += u.ByFallback
		total.RateLimited += u.RateLimited
		total.Failed += u.Failed
	}
	fmt.Fprintln(w, rule)
	writeGatewayRow(w, "TOTAL", total)

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		return fmt.Errorf("query model usage: %w", err)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Estimated Cost (USD)")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-28s  %8s  %10s  %10s  %10s\n", "Model", "Attempts", "Input", "Output", "Cost")
	fmt.Fprintln(w, rule)

	var sum float64
	var unpriced []string
	for _, mu := range byModel {
		cost := "?"
		if price := llm.LookupCost(mu.Model); price != nil {
			c := price.Cost(mu.InputTokens, mu.OutputTokens)
			sum += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, mu.Model)
		}
		fmt.Fprintf(w, "%-28s  %8d  %10d  %10d  %10s\n",
			truncate(mu.Model, 28), mu.Calls, mu.InputTokens, mu.OutputTokens, cost)
	}
	fmt.Fprintln(w, rule)
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-28s  %8s  %10s  %10s  %10s\n", label, "", "", "", formatCost(sum))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
	return nil
}

func writeGatewayRow(w io.Writer, label string, u store.GatewayUsage) {
	share := fmt.Sprintf("%.0f%%", 100*u.FallbackShare())
	fmt.Fprintf(w, "%-16s  %8d  %8d  %9s  %12d  %6d\n",
		label, u.Attempts, u.Answered, share, u.RateLimited, u.Failed)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of attempts to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show one purpose: quiz, quiz-feedback, chat, suggestion or math-feedback")
	llmListCmd.Flags().Duration("since", 0, "Only show attempts newer than this, e.g. 1h")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
