package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6, cfg.Field.Length)
	assert.Equal(t, 50*time.Millisecond, cfg.BurstGap())
	assert.Equal(t, 100*time.Millisecond, cfg.AbandonDelay())
	assert.Zero(t, cfg.PollInterval())
	assert.True(t, cfg.ClipboardMode().PromptBeforePaste)
	assert.False(t, cfg.ClipboardMode().AutoPasteWithoutPrompt)
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("OTPENTRY_CONFIG", "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ConfigPath())
}

func TestDataDirOverride(t *testing.T) {
	t.Setenv("OTPENTRY_DATA_DIR", "/srv/otp")
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/srv/otp", "journal.db"), cfg.Journal.Path)
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Field, cfg.Field)
}

func TestLoadFormats(t *testing.T) {
	files := map[string]string{
		"config.toml": `
version = 1
[field]
length = 4
burst_gap_ms = 80
[clipboard]
auto_paste_without_prompt = true
source = "exec"
`,
		"config.json": `{"version": 1, "field": {"length": 4, "burst_gap_ms": 80},
  "clipboard": {"auto_paste_without_prompt": true, "source": "exec"}}`,
		"config.yaml": `
version: 1
field:
  length: 4
  burst_gap_ms: 80
clipboard:
  auto_paste_without_prompt: true
  source: exec
`,
		"config.conf": `
version = 1
[field]
length = 4
burst_gap_ms = 80
[clipboard]
auto_paste_without_prompt = true
source = "exec"
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 4, cfg.Field.Length)
			assert.Equal(t, 80*time.Millisecond, cfg.BurstGap())
			// Unset keys keep their defaults.
			assert.Equal(t, 100*time.Millisecond, cfg.AbandonDelay())
			assert.True(t, cfg.Clipboard.AutoPasteWithoutPrompt)
			assert.True(t, cfg.Clipboard.PromptBeforePaste)
			assert.Equal(t, "exec", cfg.Clipboard.Source)
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[field\nlength = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OTPENTRY_LENGTH", "8")
	t.Setenv("OTPENTRY_AUTO_PASTE", "true")
	t.Setenv("OTPENTRY_CLIPBOARD_SOURCE", "none")
	t.Setenv("OTPENTRY_LOG_LEVEL", "debug")
	t.Setenv("OTPENTRY_JOURNAL_PATH", "/tmp/j.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Field.Length)
	assert.True(t, cfg.Clipboard.AutoPasteWithoutPrompt)
	assert.Equal(t, "none", cfg.Clipboard.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/j.db", cfg.Journal.Path)
}

func TestValidationErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Field.Length = 0
	cfg.Field.BurstGapMs = -1
	cfg.Clipboard.Source = "carrier-pigeon"
	cfg.Logging.Level = "loud"
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""
	cfg.Journal.Enabled = true
	cfg.Journal.Path = ""

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"field.length", "field.burst_gap_ms", "clipboard.source",
		"logging.level", "logging.file_path", "journal.path",
	} {
		assert.True(t, fields[f], "missing error for %s", f)
	}
	assert.Contains(t, err.Error(), "config: field.length")
}

func TestValidateSchema(t *testing.T) {
	require.NoError(t, ValidateSchema(DefaultConfig()))

	cfg := DefaultConfig()
	cfg.Logging.Output = "syslog"
	err := ValidateSchema(cfg)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "schema:"))

	assert.Contains(t, string(SchemaJSON()), `"field"`)
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, "stderr", lc.Output)
	assert.Equal(t, "otpentry", lc.Component)

	cfg.Logging.Level = "nope"
	_, err = cfg.LoggerConfig()
	assert.Error(t, err)
}

func TestSaveAndLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 6, cfg.Field.Length)

	cfg.Field.Length = 5
	require.NoError(t, SaveConfig(cfg, path))

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, again.Field.Length)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Field.Length = 9
	assert.Equal(t, 6, cfg.Field.Length)
}

func TestLoaderWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[field]\nlength = 4\n"), 0o600))

	loader := NewLoader(path, quietLogger())
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Field.Length)

	type change struct{ prev, next *Config }
	changed := make(chan change, 4)
	loader.OnChange(func(prev, next *Config) { changed <- change{prev, next} })
	require.NoError(t, loader.Watch(context.Background()))
	defer loader.Close()

	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[field]\nlength = 8\n"), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, 4, c.prev.Field.Length)
		assert.Equal(t, 8, c.next.Field.Length)
		assert.Equal(t, 8, loader.Config().Field.Length)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestLoaderSeesAtomicReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0o600))

	loader := NewLoader(path, quietLogger())
	_, err := loader.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	loader.OnChange(func(_, next *Config) { changed <- next })
	require.NoError(t, loader.Watch(context.Background()))
	defer loader.Close()

	cfg := DefaultConfig()
	cfg.Clipboard.AutoPasteWithoutPrompt = true
	require.NoError(t, SaveConfig(cfg, path))

	select {
	case next := <-changed:
		assert.True(t, next.Clipboard.AutoPasteWithoutPrompt)
	case <-time.After(5 * time.Second):
		t.Fatal("atomic replace was not seen")
	}
}

func TestLoaderReportsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0o600))

	loader := NewLoader(path, quietLogger())
	_, err := loader.Load()
	require.NoError(t, err)

	errs := make(chan error, 4)
	loader.OnError(func(err error) { errs <- err })
	require.NoError(t, loader.Watch(context.Background()))
	defer loader.Close()

	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[field]\nlength = 0\n"), 0o600))

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "field.length")
	case <-time.After(5 * time.Second):
		t.Fatal("expected reload error")
	}
	assert.Equal(t, 6, loader.Config().Field.Length)
}

func TestLoaderStopsOnContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	loader := NewLoader(path, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, loader.Watch(ctx))
	cancel()
	require.NoError(t, loader.Close())
	require.NoError(t, loader.Close())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
