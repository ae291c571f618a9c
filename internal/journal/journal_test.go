package journal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"otpentry/internal/otp"
)

func openTest(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, path
}

func episode(id, value string, p otp.Provenance, completed time.Time) otp.Episode {
	return otp.Episode{
		ID:         id,
		Value:      value,
		Provenance: p,
		Length:     len(value),
		Started:    completed.Add(-2 * time.Second),
		Completed:  completed,
		Keystrokes: len(value),
	}
}

func TestCloseNilDB(t *testing.T) {
	j := &Journal{}
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	j, _ := openTest(t)
	base := time.Unix(1_700_000_000, 0)

	if err := j.Record(episode("a", "123456", otp.ProvenanceKeystroke, base)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Record(episode("b", "654321", otp.ProvenanceAutofill, base.Add(time.Minute))); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "b" || entries[1].ID != "a" {
		t.Errorf("expected newest first, got %s, %s", entries[0].ID, entries[1].ID)
	}
	if entries[0].Provenance != otp.ProvenanceAutofill {
		t.Errorf("provenance = %v", entries[0].Provenance)
	}
	if !entries[1].Completed.Equal(base) {
		t.Errorf("completed = %v, want %v", entries[1].Completed, base)
	}
	if entries[1].Length != 6 || entries[1].Keystrokes != 6 {
		t.Errorf("unexpected counters: %+v", entries[1])
	}

	limited, err := j.Recent(1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 entry, got %d", len(limited))
	}
}

func TestRecordDuplicateID(t *testing.T) {
	j, _ := openTest(t)
	ep := episode("dup", "111111", otp.ProvenancePaste, time.Now())
	if err := j.Record(ep); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Record(ep); err == nil {
		t.Error("expected error recording the same episode twice")
	}
}

func TestCodesAreNotStored(t *testing.T) {
	j, _ := openTest(t)
	if err := j.Record(episode("a", "987654", otp.ProvenanceKeystroke, time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM episodes WHERE digest = ?`, []byte("987654")).Scan(&n); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if n != 0 {
		t.Error("code stored verbatim")
	}

	entries, _ := j.Recent(1)
	if len(entries[0].Digest) != 32 {
		t.Errorf("digest length = %d", len(entries[0].Digest))
	}
	if bytes.Contains(entries[0].Digest, []byte("987654")) {
		t.Error("digest contains the code")
	}
}

func TestSeenBefore(t *testing.T) {
	j, _ := openTest(t)

	seen, err := j.SeenBefore("246810")
	if err != nil {
		t.Fatalf("SeenBefore failed: %v", err)
	}
	if seen {
		t.Error("empty journal reported a match")
	}

	if err := j.Record(episode("a", "246810", otp.ProvenanceClipboard, time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if seen, _ = j.SeenBefore("246810"); !seen {
		t.Error("expected recorded code to be seen")
	}
	if seen, _ = j.SeenBefore("246811"); seen {
		t.Error("different code reported as seen")
	}
}

func TestKeyPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first, _ := j.Digest("135790")
	if err := j.Record(episode("a", "135790", otp.ProvenanceKeystroke, time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	second, _ := j.Digest("135790")
	if !bytes.Equal(first, second) {
		t.Error("digest key changed after reopen")
	}
	if seen, _ := j.SeenBefore("135790"); !seen {
		t.Error("expected code from earlier session to be seen")
	}
}

func TestKeysDifferPerJournal(t *testing.T) {
	a, _ := openTest(t)
	b, _ := openTest(t)
	da, _ := a.Digest("000000")
	db, _ := b.Digest("000000")
	if bytes.Equal(da, db) {
		t.Error("two journals share a digest key")
	}
}

func TestStats(t *testing.T) {
	j, _ := openTest(t)
	now := time.Now()
	j.Record(episode("a", "111111", otp.ProvenanceKeystroke, now))
	j.Record(episode("b", "222222", otp.ProvenanceKeystroke, now.Add(time.Second)))
	j.Record(episode("c", "333333", otp.ProvenanceAutofill, now.Add(2*time.Second)))

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByProvenance[otp.ProvenanceKeystroke] != 2 {
		t.Errorf("keystroke = %d, want 2", stats.ByProvenance[otp.ProvenanceKeystroke])
	}
	if stats.ByProvenance[otp.ProvenancePaste] != 0 {
		t.Errorf("paste = %d, want 0", stats.ByProvenance[otp.ProvenancePaste])
	}
}

func TestKeyKeptOutOfDatabase(t *testing.T) {
	j, path := openTest(t)
	if err := j.Record(episode("a", "123456", otp.ProvenanceKeystroke, time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	info, err := os.Stat(KeyPath(path))
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if info.Size() != keySize {
		t.Errorf("key file size = %d, want %d", info.Size(), keySize)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	var tables int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name != 'episodes'`).Scan(&tables); err != nil {
		t.Fatalf("query schema: %v", err)
	}
	if tables != 0 {
		t.Errorf("database holds %d tables besides episodes", tables)
	}

	key, err := os.ReadFile(KeyPath(path))
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	for _, name := range []string{path, path + "-wal"} {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		if bytes.Contains(data, key) {
			t.Errorf("%s contains the digest key", filepath.Base(name))
		}
	}
}

func TestCorruptKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	if err := os.WriteFile(KeyPath(path), []byte("short"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrCorruptKey) {
		t.Errorf("Open error = %v, want ErrCorruptKey", err)
	}
}

func TestLostKeyFileStartsNewKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := j.Record(episode("a", "246802", otp.ProvenanceKeystroke, time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	j.Close()

	if err := os.Remove(KeyPath(path)); err != nil {
		t.Fatal(err)
	}
	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()
	if seen, _ := j.SeenBefore("246802"); seen {
		t.Error("digests from a lost key should no longer match")
	}
}
