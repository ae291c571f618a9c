package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"otpentry/internal/security"
)

// CrashReport is the JSON document written for a recovered panic.
type CrashReport struct {
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Component    string    `json:"component,omitempty"`
	GOOS         string    `json:"goos"`
	GOARCH       string    `json:"goarch"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	PanicValue   string    `json:"panic_value"`
	StackTrace   string    `json:"stack_trace"`
}

// CrashHandler writes crash reports into a directory.
type CrashHandler struct {
	mu        sync.Mutex
	dir       string
	version   string
	component string
	log       *slog.Logger
}

// NewCrashHandler returns a handler writing into dir. The directory is created
// on the first report.
func NewCrashHandler(dir, component, version string, log *slog.Logger) *CrashHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CrashHandler{dir: dir, component: component, version: version, log: log}
}

// Dir returns the report directory.
func (h *CrashHandler) Dir() string {
	return h.dir
}

// Capture records a panic in progress and re-raises it. It must be deferred
// directly. The cleanup functions run first, so a terminal in raw mode is
// restored before the runtime prints the panic.
//
//	defer crashes.Capture(tty.Close)
func (h *CrashHandler) Capture(cleanup ...func() error) {
	r := recover()
	if r == nil {
		return
	}
	for _, fn := range cleanup {
		fn()
	}
	if path, err := h.Handle(r, debug.Stack()); err != nil {
		fmt.Fprintf(os.Stderr, "could not write crash report: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "crash report written to %s\n", path)
	}
	panic(r)
}

// Handle writes a report for panicValue and returns its path.
func (h *CrashHandler) Handle(panicValue any, stack []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Component:    h.component,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprint(panicValue),
		StackTrace:   string(stack),
	}
	h.log.Error("panic", "component", h.component, "panic", report.PanicValue)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.MkdirAll(h.dir, security.PermSecretDir); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	name := fmt.Sprintf("crash-%s-%s.json", h.component, report.Timestamp.Format("20060102-150405.000000000"))
	path := filepath.Join(h.dir, name)
	if err := security.WriteFileAtomic(path, data, security.PermSecretFile); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports returns stored reports, oldest first. Unreadable files are skipped.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})
	return reports, nil
}

// Cleanup removes reports older than maxAge.
func (h *CrashHandler) Cleanup(maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
	return nil
}
