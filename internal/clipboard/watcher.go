// Package clipboard decides whether text sitting on the system clipboard should be
// offered to an OTP field, and reads that text from the platform.
package clipboard

import (
	"log/slog"
	"sync"
	"unicode/utf8"
)

// Kind is the outcome of a clipboard check.
type Kind int

const (
	None Kind = iota
	AutoApply
	Prompt
)

func (k Kind) String() string {
	switch k {
	case AutoApply:
		return "auto_apply"
	case Prompt:
		return "prompt"
	default:
		return "none"
	}
}

// Action tells the host what to do with the clipboard. Text is set for AutoApply
// and Prompt.
type Action struct {
	Kind Kind
	Text string
}

// Mode selects how a qualifying clipboard string is surfaced.
// AutoPasteWithoutPrompt takes precedence over PromptBeforePaste.
type Mode struct {
	PromptBeforePaste      bool
	AutoPasteWithoutPrompt bool
}

// Snapshot remembers the last qualifying clipboard string so the same content is
// never offered twice. It is safe for concurrent use.
type Snapshot struct {
	mu   sync.Mutex
	last string
	set  bool
}

var processSnapshot = &Snapshot{}

// ProcessSnapshot returns the snapshot shared by every field in this process. It
// lives until the process exits.
func ProcessSnapshot() *Snapshot {
	return processSnapshot
}

// Last returns the remembered string, if any.
func (s *Snapshot) Last() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.set
}

// swap stores text and reports whether it differs from the previous value.
func (s *Snapshot) swap(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && s.last == text {
		return false
	}
	s.last = text
	s.set = true
	return true
}

// Watcher evaluates clipboard contents against a field length.
type Watcher struct {
	mu       sync.RWMutex
	mode     Mode
	snapshot *Snapshot
	log      *slog.Logger
}

// NewWatcher returns a Watcher using snapshot for deduplication. A nil snapshot
// means ProcessSnapshot.
func NewWatcher(mode Mode, snapshot *Snapshot, logger *slog.Logger) *Watcher {
	if snapshot == nil {
		snapshot = ProcessSnapshot()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		mode:     mode,
		snapshot: snapshot,
		log:      logger.With(slog.String("component", "clipboard")),
	}
}

// Mode returns the watcher's paste mode.
func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

// SetMode changes the paste mode for later checks.
func (w *Watcher) SetMode(m Mode) {
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
}

// CheckAndMaybeOffer inspects the current clipboard text ("" when the clipboard
// holds no string). Only strings of exactly requiredLength characters that differ
// from the last one seen produce an offer.
func (w *Watcher) CheckAndMaybeOffer(text string, requiredLength int) Action {
	if text == "" {
		return Action{}
	}
	if utf8.RuneCountInString(text) != requiredLength {
		return Action{}
	}
	if !w.snapshot.swap(text) {
		w.log.Debug("clipboard unchanged")
		return Action{}
	}

	mode := w.Mode()
	var action Action
	switch {
	case mode.AutoPasteWithoutPrompt:
		action = Action{Kind: AutoApply, Text: text}
	case mode.PromptBeforePaste:
		action = Action{Kind: Prompt, Text: text}
	}
	w.log.Debug("clipboard candidate", "action", action.Kind.String())
	return action
}
