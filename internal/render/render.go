// Package render runs the external math-visualization renderer.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/mathpractice"
)

// DefaultTimeout bounds a single render.
const DefaultTimeout = 90 * time.Second

// ErrRender is returned when the renderer reports a failure.
var ErrRender = errors.New("render failed")

// Request describes the problem to animate.
type Request struct {
	Type     mathpractice.Op `json:"type"`
	Operand1 int             `json:"operand1"`
	Operand2 int             `json:"operand2"`
	Answer   int             `json:"answer"`
	Style    string          `json:"style,omitempty"`
}

// Validate checks the request before a process is started.
func (r Request) Validate() error {
	switch r.Type {
	case mathpractice.Addition, mathpractice.Subtraction, mathpractice.Multiplication, mathpractice.Division:
	default:
		return apperr.Invalid("type", "unknown problem type %q", r.Type)
	}
	switch r.Style {
	case "", "default", "numberline":
	default:
		return apperr.Invalid("style", "unknown style %q", r.Style)
	}
	return nil
}

// Result is the renderer's answer.
type Result struct {
	VideoURL string `json:"videoUrl"`
	Cached   bool   `json:"cached"`
}

// Runner executes name with args and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs a real process.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), err
}

// Config configures the renderer command.
type Config struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Renderer invokes the configured command once per request.
type Renderer struct {
	cfg    Config
	run    Runner
	logger *zap.Logger
}

// New creates a Renderer. A nil run uses ExecRunner.
func New(cfg Config, run Runner, logger *zap.Logger) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{cfg: cfg, run: run, logger: logger}
}

// Render runs the command with the JSON request as its last argument.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if r.cfg.Command == "" {
		return nil, fmt.Errorf("%w: no renderer command configured", ErrRender)
	}
	if req.Style == "" {
		req.Style = "default"
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, r.cfg.Args...), string(payload))
	start := time.Now()
	out, runErr := r.run(ctx, r.cfg.Command, args...)
	r.logger.Info("render finished",
		zap.String("type", string(req.Type)),
		zap.Duration("took", time.Since(start)),
		zap.Error(runErr),
	)

	var resp struct {
		VideoURL string `json:"videoUrl"`
		Cached   bool   `json:"cached"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(lastLine(out), &resp); err != nil {
		if runErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: timed out after %s", ErrRender, r.cfg.Timeout)
			}
			return nil, fmt.Errorf("%w: %w", ErrRender, runErr)
		}
		return nil, fmt.Errorf("%w: unreadable output: %w", ErrRender, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRender, resp.Error)
	}
	if resp.VideoURL == "" {
		return nil, fmt.Errorf("%w: no video produced", ErrRender)
	}
	return &Result{VideoURL: resp.VideoURL, Cached: resp.Cached}, nil
}

// lastLine returns the final line of out. Progress output may precede the
// JSON result.
func lastLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	return bytes.TrimSpace(lines[len(lines)-1])
}
