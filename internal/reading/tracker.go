package reading

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the reading mode. It replaces separate playing, hover and
// mode flags so invalid combinations cannot be represented.
type State int

const (
	Idle           State = iota // nothing loaded or not yet started
	AutoPlaying                 // ticker advances one word per tick
	AutoPaused                  // auto mode, not advancing
	CursorTracking              // position follows the hovered word
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AutoPlaying:
		return "auto-playing"
	case AutoPaused:
		return "auto-paused"
	case CursorTracking:
		return "cursor-tracking"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Speed bounds for SetSpeed.
const (
	MinSpeed = 0.5
	MaxSpeed = 3.0
)

// Config holds the tracker's tunables.
type Config struct {
	// BaseTick is the auto-play period at speed 1.
	BaseTick time.Duration
	// AutoStride and CursorStride are the checkpoint intervals, in words.
	AutoStride   int
	CursorStride int
	// CompleteRatio is the progress at which a section counts as read.
	CompleteRatio float64
	// SkipWords is how far SkipBack and SkipForward move.
	SkipWords int
}

// DefaultConfig returns the stock reading settings.
func DefaultConfig() Config {
	return Config{
		BaseTick:      600 * time.Millisecond,
		AutoStride:    20,
		CursorStride:  10,
		CompleteRatio: 0.9,
		SkipWords:     10,
	}
}

// Checkpoint is a progress write issued at a stride boundary or at the end
// of a section.
type Checkpoint struct {
	StoryID   string
	Epoch     uint64
	Section   int
	WordsRead int
	Total     int
	Completed bool
}

// Checkpointer persists checkpoints.
type Checkpointer interface {
	Checkpoint(ctx context.Context, cp Checkpoint) error
}

// Snapshot is a consistent copy of the tracker's state.
type Snapshot struct {
	State   State
	Index   int
	Hover   int // -1 when no word is hovered
	Total   int
	Speed   float64
	Section int
	Epoch   uint64
}

// Progress is the read ratio of the snapshot, in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Index) / float64(s.Total)
}

// Tracker is the reading progression state machine for one child and one
// story. It is safe for concurrent use.
type Tracker struct {
	cfg    Config
	cp     Checkpointer
	logger *zap.Logger

	mu      sync.Mutex
	doc     Document
	words   []string
	state   State
	index   int
	hover   int
	speed   float64
	section int
	epoch   uint64
	onReset []func(epoch uint64)
}

// NewTracker returns an idle tracker. cp may be nil.
func NewTracker(cfg Config, cp Checkpointer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{cfg: cfg, cp: cp, logger: logger, hover: -1, speed: 1}
}

// OnReset registers fn to run whenever the story or section changes.
// fn runs while the tracker is locked and must not call back into it.
func (t *Tracker) OnReset(fn func(epoch uint64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = append(t.onReset, fn)
}

// LoadStory replaces the document and starts at its first section.
func (t *Tracker) LoadStory(doc Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.doc = doc
	t.resetLocked(0)
}

// SwitchSection moves to section i. Word index, hover, playback and any
// listener state are reset together under a new epoch.
func (t *Tracker) SwitchSection(i int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.doc.Sections) {
		return fmt.Errorf("section %d out of range [0, %d)", i, len(t.doc.Sections))
	}
	t.resetLocked(i)
	return nil
}

func (t *Tracker) resetLocked(section int) {
	t.section = section
	t.words = nil
	if section < len(t.doc.Sections) {
		t.words = Words(t.doc.Sections[section].Content)
	}
	t.index = 0
	t.hover = -1
	t.state = Idle
	t.epoch++
	for _, fn := range t.onReset {
		fn(t.epoch)
	}
}

// Play starts auto-play. At the end of the section it restarts from the
// first word.
func (t *Tracker) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playLocked()
}

func (t *Tracker) playLocked() {
	if len(t.words) == 0 {
		return
	}
	if t.index >= len(t.words) {
		t.index = 0
	}
	t.hover = -1
	t.state = AutoPlaying
}

// Pause stops auto-play without moving the word index.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == AutoPlaying {
		t.state = AutoPaused
	}
}

// TogglePlay switches between playing and paused and reports whether the
// tracker is now playing.
func (t *Tracker) TogglePlay() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == AutoPlaying {
		t.state = AutoPaused
		return false
	}
	t.playLocked()
	return t.state == AutoPlaying
}

// Tick advances auto-play by one word. It reports whether the index moved.
// Reaching the last word pauses playback.
func (t *Tracker) Tick(ctx context.Context) bool {
	t.mu.Lock()
	if t.state != AutoPlaying || t.index >= len(t.words) {
		t.mu.Unlock()
		return false
	}
	t.index++
	if t.index == len(t.words) {
		t.state = AutoPaused
	}
	cp, due := t.checkpointLocked(t.cfg.AutoStride)
	t.mu.Unlock()

	if due {
		t.emit(ctx, cp)
	}
	return true
}

// Hover moves the position to word i in cursor mode. Outside cursor mode
// it is ignored.
func (t *Tracker) Hover(ctx context.Context, i int) {
	t.mu.Lock()
	if t.state != CursorTracking || len(t.words) == 0 {
		t.mu.Unlock()
		return
	}
	i = max(0, min(i, len(t.words)-1))
	prev := t.index
	t.hover = i
	t.index = i + 1
	var cp Checkpoint
	due := false
	if t.index > prev {
		cp, due = t.checkpointLocked(t.cfg.CursorStride)
	}
	t.mu.Unlock()

	if due {
		t.emit(ctx, cp)
	}
}

// checkpointLocked reports whether the current index is a checkpoint.
func (t *Tracker) checkpointLocked(stride int) (Checkpoint, bool) {
	total := len(t.words)
	if t.index != total && (stride <= 0 || t.index%stride != 0) {
		return Checkpoint{}, false
	}
	return Checkpoint{
		StoryID:   t.doc.StoryID,
		Epoch:     t.epoch,
		Section:   t.section,
		WordsRead: t.index,
		Total:     total,
		Completed: t.index == total,
	}, true
}

func (t *Tracker) emit(ctx context.Context, cp Checkpoint) {
	if t.cp == nil {
		return
	}
	if err := t.cp.Checkpoint(ctx, cp); err != nil {
		t.logger.Warn("failed to save reading checkpoint",
			zap.String("story", cp.StoryID),
			zap.Int("position", cp.WordsRead),
			zap.Error(err),
		)
	}
}

// EnterCursorMode stops auto-play and follows the hovered word.
func (t *Tracker) EnterCursorMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = CursorTracking
}

// EnterAutoMode leaves cursor mode paused at the current word.
func (t *Tracker) EnterAutoMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == CursorTracking {
		t.state = AutoPaused
		t.hover = -1
	}
}

// SkipBack moves back by the configured number of words.
func (t *Tracker) SkipBack() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = max(0, t.index-t.cfg.SkipWords)
}

// SkipForward moves ahead by the configured number of words.
func (t *Tracker) SkipForward() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = min(len(t.words), t.index+t.cfg.SkipWords)
}

// SetSpeed sets the playback multiplier, clamped to [MinSpeed, MaxSpeed].
// NaN means normal speed.
func (t *Tracker) SetSpeed(speed float64) {
	if math.IsNaN(speed) {
		speed = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.speed = max(MinSpeed, min(speed, MaxSpeed))
}

// Interval is the current tick period: base tick divided by speed.
func (t *Tracker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(float64(t.cfg.BaseTick) / t.speed)
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:   t.state,
		Index:   t.index,
		Hover:   t.hover,
		Total:   len(t.words),
		Speed:   t.speed,
		Section: t.section,
		Epoch:   t.epoch,
	}
}

// Progress returns the read ratio of the current section.
func (t *Tracker) Progress() float64 {
	return t.Snapshot().Progress()
}

// SectionComplete reports whether enough of the section has been read to
// offer a quiz.
func (t *Tracker) SectionComplete() bool {
	s := t.Snapshot()
	return s.Total > 0 && s.Progress() >= t.cfg.CompleteRatio
}

// Epoch identifies the current story and section. It changes on every reset.
func (t *Tracker) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Words returns the words of the current section.
func (t *Tracker) Words() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.words
}

// Section returns the current section.
func (t *Tracker) Section() (int, Section) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.section >= len(t.doc.Sections) {
		return t.section, Section{}
	}
	return t.section, t.doc.Sections[t.section]
}
