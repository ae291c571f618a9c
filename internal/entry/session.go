// Package entry assembles one OTP entry session from configuration: the event
// loop, the reconciler, the clipboard monitor and the episode journal. Frontends
// (terminal, GUI) feed it input and render its state; every callback it makes
// runs on the loop.
package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"otpentry/internal/clipboard"
	"otpentry/internal/config"
	"otpentry/internal/journal"
	"otpentry/internal/otp"
)

// Options configures a Session.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Accessor overrides the clipboard source named in Config.
	Accessor clipboard.Accessor

	// Journal overrides the journal named in Config. The session does not
	// close a journal it was given.
	Journal *journal.Journal

	// Snapshot defaults to the process-wide clipboard snapshot.
	Snapshot *clipboard.Snapshot

	// Scheduler defaults to an otp.LoopScheduler on the session loop.
	Scheduler otp.Scheduler

	OnComplete          func(code string)
	OnFocusChange       func(index int)
	OnAutofillAbandoned func()

	// OnOffer is called when a clipboard code waits for confirmation.
	OnOffer func(text string)

	// OnReplay is called after OnComplete when the same code was completed
	// in an earlier episode.
	OnReplay func(otp.Episode)
}

// Session wires a reconciler to its collaborators.
type Session struct {
	Loop       *otp.Loop
	Reconciler *otp.Reconciler
	Monitor    *clipboard.Monitor

	opts        Options
	log         *slog.Logger
	watcher     *clipboard.Watcher
	journal     *journal.Journal
	ownsJournal bool
	offer       string
}

// New builds a session. The loop is not running until Run is called.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.OnComplete == nil {
		return nil, otp.ErrNoCompletionHandler
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Snapshot == nil {
		opts.Snapshot = clipboard.ProcessSnapshot()
	}

	cfg := opts.Config
	s := &Session{
		Loop:    otp.NewLoop(64),
		opts:    opts,
		log:     opts.Logger.With(slog.String("component", "session")),
		journal: opts.Journal,
	}

	if s.journal == nil && cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = j
		s.ownsJournal = true
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = otp.NewLoopScheduler(s.Loop)
	}
	r, err := otp.New(otp.Options{
		Length:              cfg.Field.Length,
		BurstGap:            cfg.BurstGap(),
		AbandonDelay:        cfg.AbandonDelay(),
		Scheduler:           sched,
		OnComplete:          opts.OnComplete,
		OnFocusChange:       opts.OnFocusChange,
		OnAutofillAbandoned: opts.OnAutofillAbandoned,
		OnEpisode:           s.recordEpisode,
		Logger:              opts.Logger,
	})
	if err != nil {
		s.closeJournal()
		return nil, err
	}
	s.Reconciler = r

	accessor := opts.Accessor
	if accessor == nil {
		if accessor, err = clipboard.NewAccessor(cfg.Clipboard.Source); err != nil {
			s.closeJournal()
			return nil, err
		}
	}
	s.watcher = clipboard.NewWatcher(cfg.ClipboardMode(), opts.Snapshot, opts.Logger)
	s.Monitor, err = clipboard.NewMonitor(clipboard.MonitorOptions{
		Accessor:    accessor,
		Watcher:     s.watcher,
		Length:      cfg.Field.Length,
		Interval:    cfg.PollInterval(),
		ReadTimeout: cfg.ReadTimeout(),
		Dispatch:    s.Loop.Post,
		OnAction:    s.handleAction,
		Logger:      opts.Logger,
	})
	if err != nil {
		s.closeJournal()
		return nil, err
	}
	return s, nil
}

// Run starts clipboard polling and executes the loop until ctx is done. It
// must be called at most once; GUI hosts that drain the loop per frame call
// Start instead. The loop is closed when Run returns, so producers still
// posting get false from Post rather than blocking on a full queue.
func (s *Session) Run(ctx context.Context) error {
	defer s.Loop.Close()
	s.Start(ctx)
	err := s.Loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start begins clipboard polling and an initial clipboard check.
func (s *Session) Start(ctx context.Context) {
	s.Monitor.Start(ctx)
	s.Monitor.Trigger(ctx)
}

// CheckClipboard reads the clipboard once in the background.
func (s *Session) CheckClipboard(ctx context.Context) {
	s.Monitor.Trigger(ctx)
}

// Offer returns the clipboard code awaiting confirmation. Loop only.
func (s *Session) Offer() (string, bool) {
	return s.offer, s.offer != ""
}

// AcceptOffer fills the field with the pending clipboard code. Loop only.
func (s *Session) AcceptOffer() bool {
	text := s.offer
	if text == "" {
		return false
	}
	s.offer = ""
	s.Reconciler.BulkFill(text)
	return true
}

// DeclineOffer drops the pending clipboard code. The same text is not offered
// again. Loop only.
func (s *Session) DeclineOffer() {
	s.offer = ""
}

// ApplyConfig adopts the parts of a reloaded configuration that can change
// while a field is open. Only the clipboard paste mode is applied; a new field
// length takes effect on the next session.
func (s *Session) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Field.Length != s.Reconciler.Length() {
		s.log.Warn("field length change ignored until restart",
			"current", s.Reconciler.Length(), "configured", cfg.Field.Length)
	}
	mode := cfg.ClipboardMode()
	if mode != s.watcher.Mode() {
		s.watcher.SetMode(mode)
		s.log.Info("clipboard mode updated",
			"prompt", mode.PromptBeforePaste, "auto_paste", mode.AutoPasteWithoutPrompt)
	}
}

// Close stops clipboard checks, closes the loop and any journal the session
// opened.
func (s *Session) Close() error {
	s.Monitor.Stop()
	s.Loop.Close()
	return s.closeJournal()
}

func (s *Session) handleAction(a clipboard.Action) {
	switch a.Kind {
	case clipboard.AutoApply:
		s.offer = ""
		s.Reconciler.BulkFill(a.Text)
	case clipboard.Prompt:
		s.offer = a.Text
		if s.opts.OnOffer != nil {
			s.opts.OnOffer(a.Text)
		}
	}
}

func (s *Session) recordEpisode(ep otp.Episode) {
	if s.journal == nil {
		return
	}
	seen, err := s.journal.SeenBefore(ep.Value)
	if err != nil {
		s.log.Warn("journal lookup failed", "error", err)
	}
	if err := s.journal.Record(ep); err != nil {
		s.log.Warn("journal record failed", "episode", ep.ID, "error", err)
	}
	if seen {
		s.log.Info("code completed before", "episode", ep.ID)
		if s.opts.OnReplay != nil {
			s.opts.OnReplay(ep)
		}
	}
}

func (s *Session) closeJournal() error {
	if s.journal == nil || !s.ownsJournal {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}
