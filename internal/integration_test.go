// Package internal holds end-to-end tests across the otpentry packages.
//
// They drive a field the way the terminal frontend does:
// 1. Load configuration from disk
// 2. Build a session with file logging and the episode journal
// 3. Feed raw terminal bytes through the key decoder and field mapping
// 4. Check completions, the journal and the log file
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"otpentry/internal/clipboard"
	"otpentry/internal/config"
	"otpentry/internal/entry"
	"otpentry/internal/journal"
	"otpentry/internal/logging"
	"otpentry/internal/otp"
	"otpentry/internal/terminal"
)

type pipeline struct {
	cfg       *config.Config
	logger    *logging.Logger
	sess      *entry.Session
	field     *terminal.Field
	decoder   *terminal.Decoder
	clock     *otp.ManualClock
	completed []string
	replays   int
	logPath   string
}

func newPipeline(t *testing.T, length int) *pipeline {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "otpentry.log")
	cfgPath := filepath.Join(dir, "config.toml")

	cfgText := fmt.Sprintf(`version = 1

[field]
length = %d

[clipboard]
prompt_before_paste = true
source = "none"

[logging]
level = "debug"
format = "json"
output = "file"
file_path = '%s'

[journal]
enabled = true
path = '%s'
`, length, logPath, filepath.Join(dir, "journal.db"))
	if err := os.WriteFile(cfgPath, []byte(cfgText), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	lc, err := cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("logger config: %v", err)
	}
	logger, err := logging.New(lc)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	p := &pipeline{
		cfg:     cfg,
		logger:  logger,
		decoder: terminal.NewDecoder(),
		clock:   otp.NewManualClock(time.Unix(1_700_000_000, 0)),
		logPath: logPath,
	}
	p.sess, err = entry.New(entry.Options{
		Config:     cfg,
		Logger:     logger.Logger,
		Accessor:   clipboard.AccessorFunc(func(context.Context) (string, error) { return "", nil }),
		Snapshot:   &clipboard.Snapshot{},
		Scheduler:  p.clock,
		OnComplete: func(code string) { p.completed = append(p.completed, code) },
		OnReplay:   func(otp.Episode) { p.replays++ },
	})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	p.field = terminal.NewField(p.sess.Reconciler)
	p.sess.Reconciler.SetFocus(0)
	return p
}

func (p *pipeline) feed(input string) {
	for _, k := range p.decoder.Feed([]byte(input)) {
		p.field.HandleKey(k)
	}
}

func (p *pipeline) close(t *testing.T) {
	t.Helper()
	if err := p.sess.Close(); err != nil {
		t.Errorf("close session: %v", err)
	}
	if err := p.logger.Close(); err != nil {
		t.Errorf("close logger: %v", err)
	}
}

// =============================================================================
// INTEGRATION: Terminal input to journal
// =============================================================================

func TestTypedCodeWithCorrections(t *testing.T) {
	p := newPipeline(t, 4)

	p.feed("Q7")
	p.feed("\x7f\x7f")
	for _, c := range p.sess.Reconciler.Cells() {
		if !c.Empty() {
			t.Fatalf("backspace left %q in cell %d", c.Char, c.Index)
		}
	}

	p.feed("Q7ZJ")
	if len(p.completed) != 1 || p.completed[0] != "Q7ZJ" {
		t.Fatalf("completed = %v, want [Q7ZJ]", p.completed)
	}
	if p.sess.Reconciler.Focus() != otp.NoFocus {
		t.Errorf("focus = %d after completion", p.sess.Reconciler.Focus())
	}

	// Paste the same code in a new episode.
	p.sess.Reconciler.Reset()
	p.sess.Reconciler.SetFocus(0)
	p.feed("\x1b[200~Q7ZJ\x1b[201~")
	if len(p.completed) != 2 {
		t.Fatalf("expected second completion, got %v", p.completed)
	}
	if p.replays != 1 {
		t.Errorf("replays = %d, want 1", p.replays)
	}

	journalPath := p.cfg.Journal.Path
	p.close(t)

	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.ByProvenance[otp.ProvenanceKeystroke] != 1 || stats.ByProvenance[otp.ProvenancePaste] != 1 {
		t.Errorf("unexpected provenance counts: %v", stats.ByProvenance)
	}

	logData, err := os.ReadFile(p.logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	logText := string(logData)
	if !strings.Contains(logText, "fill episode complete") {
		t.Error("completion was not logged")
	}
	if strings.Contains(logText, "Q7ZJ") {
		t.Error("log file contains the code")
	}
}

func TestAutofillBurstThroughSession(t *testing.T) {
	p := newPipeline(t, 6)
	r := p.sess.Reconciler

	// Two empty insertions inside the burst gap, then the code one
	// character at a time.
	r.HandleEdit(0, "", 0)
	p.clock.Advance(5 * time.Millisecond)
	r.HandleEdit(0, "", 0)
	if r.Phase() != otp.PhaseAutofillBurst {
		t.Fatalf("phase = %v, want autofill burst", r.Phase())
	}
	for _, ch := range "482913" {
		p.clock.Advance(3 * time.Millisecond)
		r.HandleEdit(0, string(ch), 0)
	}
	if len(p.completed) != 1 || p.completed[0] != "482913" {
		t.Fatalf("completed = %v", p.completed)
	}

	journalPath := p.cfg.Journal.Path
	p.close(t)

	j, err := journal.Open(journalPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	entries, err := j.Recent(1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("recent: %v, %d entries", err, len(entries))
	}
	if entries[0].Provenance != otp.ProvenanceAutofill {
		t.Errorf("provenance = %v, want autofill", entries[0].Provenance)
	}
}

func TestStalledBurstThenTyping(t *testing.T) {
	p := newPipeline(t, 4)
	r := p.sess.Reconciler

	r.HandleEdit(0, "", 0)
	r.HandleEdit(0, "", 0)
	r.HandleEdit(0, "5", 0)
	r.HandleEdit(0, "5", 0)
	p.clock.Advance(p.cfg.AbandonDelay())
	if r.AutofillBuffered() != 0 || r.Phase() == otp.PhaseAutofillBurst {
		t.Fatalf("burst not abandoned: phase %v, buffered %d", r.Phase(), r.AutofillBuffered())
	}
	for _, c := range r.Cells() {
		if !c.Empty() {
			t.Fatalf("abandoned burst wrote cell %d", c.Index)
		}
	}

	r.SetFocus(0)
	p.feed("5566")
	if len(p.completed) != 1 || p.completed[0] != "5566" {
		t.Fatalf("completed = %v", p.completed)
	}
	p.close(t)
}
