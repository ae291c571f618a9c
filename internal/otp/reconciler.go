package otp

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Default timing windows. They were measured on phones delivering SMS autofill
// and may need tuning on slower targets.
const (
	DefaultBurstGap     = 50 * time.Millisecond
	DefaultAbandonDelay = 100 * time.Millisecond
)

// Options configures a Reconciler.
type Options struct {
	// Length is the number of cells. It is fixed for the lifetime of the
	// reconciler.
	Length int

	// BurstGap is the largest gap between two empty-string deliveries that
	// still marks the start of an autofill burst. Zero means DefaultBurstGap.
	BurstGap time.Duration

	// AbandonDelay is how long a partial autofill buffer may stall before it
	// is discarded. Zero means DefaultAbandonDelay.
	AbandonDelay time.Duration

	// Scheduler supplies time and deferred callbacks. Its callbacks must run
	// on the goroutine that calls the reconciler.
	Scheduler Scheduler

	// OnComplete receives the joined code once per fill episode. Required.
	OnComplete func(otp string)

	// OnFocusChange receives the new focus index, or NoFocus.
	OnFocusChange func(index int)

	// OnAutofillAbandoned is called when a partial burst buffer is dropped.
	OnAutofillAbandoned func()

	// OnEpisode receives diagnostics for each completed episode, after
	// OnComplete.
	OnEpisode func(Episode)

	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.BurstGap == 0 {
		o.BurstGap = DefaultBurstGap
	}
	if o.AbandonDelay == 0 {
		o.AbandonDelay = DefaultAbandonDelay
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (o *Options) validate() error {
	if o.Length < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, o.Length)
	}
	if o.BurstGap < 0 || o.AbandonDelay < 0 {
		return ErrInvalidTiming
	}
	if o.OnComplete == nil {
		return ErrNoCompletionHandler
	}
	if o.Scheduler == nil {
		return ErrNoScheduler
	}
	return nil
}

// episodeState tracks the current fill episode. An episode opens on the first
// content change after construction, Reset, or a reported completion, and closes
// when its completion is emitted.
type episodeState struct {
	open       bool
	reported   bool
	id         string
	started    time.Time
	keystrokes int
}

// Reconciler owns the cells of one OTP field and turns per-cell edit events into
// focus moves and completion notifications.
type Reconciler struct {
	opts     Options
	log      *slog.Logger
	cells    []rune
	focus    int
	autofill autofillSession
	abandon  Timer
	episode  episodeState

	// abandonedBursts counts dropped bursts since the last reported episode.
	abandonedBursts int
}

// New validates opts and returns a Reconciler with empty cells and no focus.
func New(opts Options) (*Reconciler, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Reconciler{
		opts:  opts,
		log:   opts.Logger.With(slog.String("component", "otp"), slog.Int("length", opts.Length)),
		cells: make([]rune, opts.Length),
		focus: NoFocus,
	}, nil
}

// Length returns the number of cells.
func (r *Reconciler) Length() int {
	return len(r.cells)
}

// HandleEdit applies one platform edit callback received by cell cellIndex.
// replacement is the proposed text and existingRangeLength the length of the
// range it replaces (0 for an insertion, 1 when replacing the cell's character).
// The result is always Deny: the reconciler has already mutated the cells.
func (r *Reconciler) HandleEdit(cellIndex int, replacement string, existingRangeLength int) Decision {
	chars := []rune(replacement)
	n := len(chars)

	if n > len(r.cells) {
		r.log.Debug("edit denied", "reason", "too_long", "cell", cellIndex, "replacement_len", n)
		return Deny
	}
	if cellIndex < 0 || cellIndex >= len(r.cells) {
		r.log.Debug("edit denied", "reason", "cell_out_of_range", "cell", cellIndex)
		return Deny
	}

	if !printable(chars) {
		r.log.Debug("edit denied", "reason", "non_printable", "cell", cellIndex, "replacement_len", n)
		return Deny
	}

	if strings.TrimSpace(replacement) == "" && existingRangeLength == 0 {
		if replacement == "" {
			r.noteEmptyDelivery()
		}
		return Deny
	}

	switch {
	case n == len(r.cells):
		r.fill(chars, ProvenancePaste)
	case n == 1:
		if r.autofill.suspected {
			r.bufferAutofill(chars[0])
			return Deny
		}
		r.place(cellIndex, chars[0])
	case n == 0:
		r.erase(cellIndex)
	default:
		r.log.Debug("edit denied", "reason", "partial_paste", "cell", cellIndex, "replacement_len", n)
	}
	return Deny
}

// BulkFill places an accepted clipboard suggestion into every cell at once. Text
// whose length differs from the field length is denied.
func (r *Reconciler) BulkFill(text string) Decision {
	chars := []rune(text)
	if len(chars) != len(r.cells) {
		r.log.Debug("bulk fill denied", "reason", "length_mismatch", "replacement_len", len(chars))
		return Deny
	}
	if !printable(chars) {
		r.log.Debug("bulk fill denied", "reason", "non_printable", "replacement_len", len(chars))
		return Deny
	}
	r.fill(chars, ProvenanceClipboard)
	return Deny
}

// SetFocus moves focus at the host's request, for example when the user taps a
// cell. Indices outside the field, other than NoFocus, are ignored.
func (r *Reconciler) SetFocus(index int) {
	if index != NoFocus && (index < 0 || index >= len(r.cells)) {
		return
	}
	r.setFocus(index)
}

// Reset clears every cell, the autofill session and focus, starting a fresh
// fill episode.
func (r *Reconciler) Reset() {
	r.stopAbandonTimer()
	r.autofill.clear()
	for i := range r.cells {
		r.cells[i] = 0
	}
	r.episode = episodeState{}
	r.abandonedBursts = 0
	r.setFocus(NoFocus)
	r.log.Debug("reset")
}

// Cells returns a snapshot of every cell in index order.
func (r *Reconciler) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	for i, ch := range r.cells {
		out[i] = Cell{Index: i, Char: ch, Focused: i == r.focus}
	}
	return out
}

// Focus returns the focused cell index, or NoFocus.
func (r *Reconciler) Focus() int {
	return r.focus
}

// IsComplete reports whether every cell holds a character.
func (r *Reconciler) IsComplete() bool {
	for _, ch := range r.cells {
		if ch == 0 {
			return false
		}
	}
	return true
}

// JoinedValue returns the code when every cell is filled. ok is false while any
// cell is empty.
func (r *Reconciler) JoinedValue() (value string, ok bool) {
	if !r.IsComplete() {
		return "", false
	}
	return string(r.cells), true
}

// Phase returns the current state machine phase.
func (r *Reconciler) Phase() Phase {
	switch {
	case r.autofill.suspected:
		return PhaseAutofillBurst
	case r.episode.reported && !r.episode.open && r.IsComplete():
		return PhaseComplete
	case r.focus != NoFocus:
		return PhaseEditing
	default:
		return PhaseIdle
	}
}

// AutofillBuffered returns how many characters the autofill session holds.
func (r *Reconciler) AutofillBuffered() int {
	return len(r.autofill.buffer)
}

// printable reports whether every rune can occupy a cell. A zero rune marks an
// empty cell, so it and other control runes are never placed.
func printable(chars []rune) bool {
	for _, ch := range chars {
		if !unicode.IsPrint(ch) {
			return false
		}
	}
	return true
}

func (r *Reconciler) noteEmptyDelivery() {
	now := r.opts.Scheduler.Now()
	last := r.autofill.lastEmpty
	if !last.IsZero() && now.Sub(last) < r.opts.BurstGap {
		r.autofill.suspected = true
		r.autofill.lastEmpty = time.Time{}
		r.log.Debug("autofill burst suspected", "gap", now.Sub(last))
		return
	}
	r.autofill.lastEmpty = now
}

func (r *Reconciler) bufferAutofill(ch rune) {
	r.autofill.buffer = append(r.autofill.buffer, ch)
	if len(r.autofill.buffer) == len(r.cells) {
		chars := r.autofill.buffer
		r.stopAbandonTimer()
		r.autofill.clear()
		r.fill(chars, ProvenanceAutofill)
		return
	}

	r.stopAbandonTimer()
	r.abandon = r.opts.Scheduler.AfterFunc(r.opts.AbandonDelay, r.abandonBurst)
}

func (r *Reconciler) abandonBurst() {
	r.abandon = nil
	if !r.autofill.suspected || len(r.autofill.buffer) >= len(r.cells) {
		return
	}
	buffered := len(r.autofill.buffer)
	r.autofill.clear()
	r.abandonedBursts++
	r.log.Debug("autofill burst abandoned", "buffered", buffered)
	if r.opts.OnAutofillAbandoned != nil {
		r.opts.OnAutofillAbandoned()
	}
}

func (r *Reconciler) stopAbandonTimer() {
	if r.abandon != nil {
		r.abandon.Stop()
		r.abandon = nil
	}
}

// fill distributes chars across every cell, dismisses focus and completes.
func (r *Reconciler) fill(chars []rune, p Provenance) {
	r.stopAbandonTimer()
	r.autofill.clear()
	for i, ch := range chars {
		r.setCell(i, ch)
	}
	r.setFocus(NoFocus)
	r.attemptCompletion(p)
}

func (r *Reconciler) place(index int, ch rune) {
	r.setCell(index, ch)
	r.episode.keystrokes++
	if index == len(r.cells)-1 {
		r.setFocus(NoFocus)
		r.attemptCompletion(ProvenanceKeystroke)
		return
	}
	r.setFocus(index + 1)
}

func (r *Reconciler) erase(index int) {
	r.setCell(index, 0)
	if index == 0 {
		r.setFocus(NoFocus)
		return
	}
	r.setFocus(index - 1)
}

func (r *Reconciler) setCell(index int, ch rune) {
	if r.cells[index] == ch {
		return
	}
	r.cells[index] = ch
	if !r.episode.open {
		r.episode = episodeState{
			open:    true,
			id:      uuid.NewString(),
			started: r.opts.Scheduler.Now(),
		}
	}
}

func (r *Reconciler) setFocus(index int) {
	if r.focus == index {
		return
	}
	r.focus = index
	if r.opts.OnFocusChange != nil {
		r.opts.OnFocusChange(index)
	}
}

// attemptCompletion emits the joined value if the field is full and the current
// episode has not been reported yet. An incomplete field is not an error.
func (r *Reconciler) attemptCompletion(p Provenance) {
	value, ok := r.JoinedValue()
	if !ok || !r.episode.open {
		return
	}

	ep := Episode{
		ID:              r.episode.id,
		Value:           value,
		Provenance:      p,
		Length:          len(r.cells),
		Started:         r.episode.started,
		Completed:       r.opts.Scheduler.Now(),
		Keystrokes:      r.episode.keystrokes,
		AbandonedBursts: r.abandonedBursts,
	}
	r.episode.open = false
	r.episode.reported = true
	r.abandonedBursts = 0

	r.log.Info("fill episode complete",
		"episode", ep.ID,
		"provenance", p.String(),
		"keystrokes", ep.Keystrokes,
		"duration", ep.Duration(),
	)
	r.opts.OnComplete(value)
	if r.opts.OnEpisode != nil {
		r.opts.OnEpisode(ep)
	}
}
