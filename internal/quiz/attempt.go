package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Phase is the lifecycle state of a quiz attempt.
type Phase int

const (
	NotStarted Phase = iota
	Generating
	Answering
	Submitting
	PassedPhase
	FailedPhase
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not-started"
	case Generating:
		return "generating"
	case Answering:
		return "answering"
	case Submitting:
		return "submitting"
	case PassedPhase:
		return "passed"
	case FailedPhase:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrInvalidTransition is returned when an action is not allowed in the
// current phase.
var ErrInvalidTransition = errors.New("invalid quiz transition")

// Token identifies one in-flight request. Responses carrying an older token
// are dropped.
type Token struct {
	Epoch uint64
	Seq   uint64
}

// Attempt tracks one child's quiz for the section currently being read.
// It is safe for concurrent use.
type Attempt struct {
	mu        sync.Mutex
	phase     Phase
	epoch     uint64
	seq       uint64
	inflight  Token
	quizID    string
	questions []PublicQuestion
	answers   []int // -1 means unanswered
	result    *Result
	lastErr   error
}

// NewAttempt returns an attempt bound to the given reading epoch.
func NewAttempt(epoch uint64) *Attempt {
	return &Attempt{epoch: epoch}
}

// Reset discards all quiz state and binds the attempt to a new epoch.
// Responses to requests made before the reset are dropped.
func (a *Attempt) Reset(epoch uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch = epoch
	a.clearLocked()
}

func (a *Attempt) clearLocked() {
	a.phase = NotStarted
	a.inflight = Token{}
	a.quizID = ""
	a.questions = nil
	a.answers = nil
	a.result = nil
	a.lastErr = nil
}

func (a *Attempt) nextTokenLocked() Token {
	a.seq++
	a.inflight = Token{Epoch: a.epoch, Seq: a.seq}
	return a.inflight
}

// Start begins generating the first quiz.
func (a *Attempt) Start() (Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != NotStarted {
		return Token{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, a.phase)
	}
	a.phase = Generating
	a.lastErr = nil
	return a.nextTokenLocked(), nil
}

// Retry begins generating a fresh quiz after a failed one. The failed
// question set is never reused.
func (a *Attempt) Retry() (Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != FailedPhase {
		return Token{}, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, a.phase)
	}
	a.clearLocked()
	a.phase = Generating
	return a.nextTokenLocked(), nil
}

// ApplyGenerated installs a generated quiz. It reports false and changes
// nothing when tok is stale.
func (a *Attempt) ApplyGenerated(tok Token, g *Generated) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Generating || tok != a.inflight {
		return false
	}
	a.phase = Answering
	a.quizID = g.QuizID
	a.questions = g.Questions
	a.answers = make([]int, len(g.Questions))
	for i := range a.answers {
		a.answers[i] = -1
	}
	return true
}

// GenerateFailed returns to NotStarted so the child can try again.
func (a *Attempt) GenerateFailed(tok Token, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Generating || tok != a.inflight {
		return false
	}
	a.phase = NotStarted
	a.lastErr = err
	return true
}

// Select records option as the answer to question q.
func (a *Attempt) Select(q, option int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Answering {
		return fmt.Errorf("%w: select in %s", ErrInvalidTransition, a.phase)
	}
	if q < 0 || q >= len(a.questions) {
		return fmt.Errorf("question %d out of range", q)
	}
	if option < 0 || option >= len(a.questions[q].Options) {
		return fmt.Errorf("option %d out of range", option)
	}
	a.answers[q] = option
	return nil
}

// CanSubmit reports whether every question has an answer.
func (a *Attempt) CanSubmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canSubmitLocked()
}

func (a *Attempt) canSubmitLocked() bool {
	if a.phase != Answering || len(a.answers) == 0 {
		return false
	}
	for _, v := range a.answers {
		if v < 0 {
			return false
		}
	}
	return true
}

// BeginSubmit moves to Submitting and returns the quiz id and answers to
// send.
func (a *Attempt) BeginSubmit() (Token, string, []int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.canSubmitLocked() {
		return Token{}, "", nil, fmt.Errorf("%w: submit in %s with unanswered questions", ErrInvalidTransition, a.phase)
	}
	a.phase = Submitting
	a.lastErr = nil
	answers := append([]int(nil), a.answers...)
	return a.nextTokenLocked(), a.quizID, answers, nil
}

// ApplyScored records the result. It reports false when tok is stale.
func (a *Attempt) ApplyScored(tok Token, res *Result) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Submitting || tok != a.inflight {
		return false
	}
	a.result = res
	if res.Passed {
		a.phase = PassedPhase
	} else {
		a.phase = FailedPhase
	}
	return true
}

// SubmitFailed returns to Answering with the selections kept.
func (a *Attempt) SubmitFailed(tok Token, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Submitting || tok != a.inflight {
		return false
	}
	a.phase = Answering
	a.lastErr = err
	return true
}

// AttemptSnapshot is a copy of an attempt's state.
type AttemptSnapshot struct {
	Phase     Phase
	Epoch     uint64
	QuizID    string
	Questions []PublicQuestion
	Answers   []int
	Result    *Result
	Err       error
}

// Snapshot returns a copy of the current state.
func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AttemptSnapshot{
		Phase:     a.phase,
		Epoch:     a.epoch,
		QuizID:    a.quizID,
		Questions: a.questions,
		Answers:   append([]int(nil), a.answers...),
		Result:    a.result,
		Err:       a.lastErr,
	}
}

// Runner drives an Attempt with a Service.
type Runner struct {
	svc     *Service
	attempt *Attempt
}

// NewRunner returns a runner for attempt.
func NewRunner(svc *Service, attempt *Attempt) *Runner {
	return &Runner{svc: svc, attempt: attempt}
}

// RequestQuiz starts generation in the background. in.Fresh is forced on a
// retry. The result is applied only if the attempt has not moved on; done,
// when not nil, receives whether it was applied.
func (r *Runner) RequestQuiz(ctx context.Context, in GenerateInput, done chan<- bool) error {
	var tok Token
	var err error
	if r.attempt.Snapshot().Phase == FailedPhase {
		tok, err = r.attempt.Retry()
		in.Fresh = true
	} else {
		tok, err = r.attempt.Start()
	}
	if err != nil {
		return err
	}

	go func() {
		g, err := r.svc.Generate(ctx, in)
		var applied bool
		if err != nil {
			applied = r.attempt.GenerateFailed(tok, err)
		} else {
			applied = r.attempt.ApplyGenerated(tok, g)
		}
		if done != nil {
			done <- applied
		}
	}()
	return nil
}

// Submit sends the selected answers and applies the result.
func (r *Runner) Submit(ctx context.Context) (*Result, error) {
	tok, quizID, answers, err := r.attempt.BeginSubmit()
	if err != nil {
		return nil, err
	}
	res, err := r.svc.Submit(ctx, quizID, answers)
	if err != nil {
		r.attempt.SubmitFailed(tok, err)
		return nil, err
	}
	if !r.attempt.ApplyScored(tok, res) {
		return nil, fmt.Errorf("%w: quiz was reset during submission", ErrInvalidTransition)
	}
	return res, nil
}
