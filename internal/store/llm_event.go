package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose", "input_tokens",
	"output_tokens", "latency_ms", "success", "error_message", "request_body", "response_body",
	"attempt", "fallback", "rate_limited",
}

// eventRepo implements EventRepo backed by the llm_request_events table and
// the sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert("llm_request_events").
		Columns(llmEventColumns[1:]...).
		Values(seqNum, time.Now().UnixMilli(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, boolInt(data.Success),
			nullString(data.ErrorMessage), nullString(data.RequestBody), nullString(data.ResponseBody),
			data.Attempt, boolInt(data.Fallback), boolInt(data.RateLimited)).
		Query()
	if _, err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UnixMilli()))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}

	sel := builder().Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		OrderBy(entsql.Desc("sequence"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()
	return r.scan(ctx, query, args)
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	query, args := builder().Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		Where(entsql.EQ("id", id)).
		Query()
	events, err := r.scan(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

func (r *eventRepo) usage(ctx context.Context, groupBy string) ([]LLMUsage, error) {
	query, args := builder().Select(
		groupBy,
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(entsql.Table("llm_request_events")).
		GroupBy(groupBy).
		OrderBy(groupBy).
		Query()

	var out []LLMUsage
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			u   LLMUsage
			key string
			avg sql.NullFloat64
		)
		if err := rows.Scan(&key, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return err
		}
		if groupBy == "purpose" {
			u.Purpose = key
		} else {
			u.Model = key
		}
		u.AvgLatencyMs = int64(avg.Float64)
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", groupBy, err)
	}
	return out, nil
}

// GatewayUsageByPurpose counts attempts per purpose by outcome. Rows are
// grouped in SQL by the outcome flags and folded here.
func (r *eventRepo) GatewayUsageByPurpose(ctx context.Context) ([]GatewayUsage, error) {
	query, args := builder().Select("purpose", "success", "fallback", "rate_limited", entsql.Count("*")).
		From(entsql.Table("llm_request_events")).
		GroupBy("purpose", "success", "fallback", "rate_limited").
		OrderBy("purpose").
		Query()

	var out []GatewayUsage
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			purpose                        string
			success, fallback, rateLimited bool
			n                              int
		)
		if err := rows.Scan(&purpose, &success, &fallback, &rateLimited, &n); err != nil {
			return err
		}
		if len(out) == 0 || out[len(out)-1].Purpose != purpose {
			out = append(out, GatewayUsage{Purpose: purpose})
		}
		u := &out[len(out)-1]
		u.Attempts += n
		switch {
		case success:
			u.Answered += n
			if fallback {
				u.ByFallback += n
			}
		case rateLimited:
			u.RateLimited += n
		default:
			u.Failed += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query gateway usage: %w", err)
	}
	return out, nil
}

func (r *eventRepo) scan(ctx context.Context, query string, args []any) ([]LLMEvent, error) {
	var out []LLMEvent
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			e        LLMEvent
			ts       int64
			errMsg   sql.NullString
			reqBody  sql.NullString
			respBody sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.Provider, &e.Model, &e.Purpose,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
			&errMsg, &reqBody, &respBody, &e.Attempt, &e.Fallback, &e.RateLimited); err != nil {
			return err
		}
		e.Timestamp = fromMillis(ts)
		e.ErrorMessage = errMsg.String
		e.RequestBody = reqBody.String
		e.ResponseBody = respBody.String
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}
