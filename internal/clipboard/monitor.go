package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultReadTimeout bounds a single clipboard read.
const DefaultReadTimeout = 2 * time.Second

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	Accessor Accessor
	Watcher  *Watcher

	// Length is the OTP field length a clipboard string must match.
	Length int

	// Interval enables background polling when positive.
	Interval time.Duration

	// ReadTimeout bounds each read. Zero means DefaultReadTimeout.
	ReadTimeout time.Duration

	// Dispatch runs a function on the host's event thread, e.g. otp.Loop.Post.
	Dispatch func(func()) bool

	// OnAction receives every AutoApply or Prompt action on the event thread.
	OnAction func(Action)

	Logger *slog.Logger
}

// Monitor feeds clipboard contents to a Watcher, either on demand (when the
// field becomes visible or the app returns to the foreground) or by polling.
type Monitor struct {
	opts MonitorOptions
	log  *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor validates opts and returns a stopped Monitor.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Accessor == nil {
		return nil, errors.New("clipboard: accessor is required")
	}
	if opts.Watcher == nil {
		return nil, errors.New("clipboard: watcher is required")
	}
	if opts.Length < 1 {
		return nil, errors.New("clipboard: length must be at least 1")
	}
	if opts.Dispatch == nil || opts.OnAction == nil {
		return nil, errors.New("clipboard: dispatch and action handler are required")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		opts: opts,
		log:  opts.Logger.With(slog.String("component", "clipboard_monitor")),
	}, nil
}

// CheckNow reads the clipboard and evaluates it synchronously. Read failures
// yield a None action together with the error.
func (m *Monitor) CheckNow(ctx context.Context) (Action, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ReadTimeout)
	defer cancel()

	text, err := m.opts.Accessor.Text(ctx)
	if err != nil {
		return Action{}, err
	}
	return m.opts.Watcher.CheckAndMaybeOffer(text, m.opts.Length), nil
}

// Trigger checks the clipboard in the background and dispatches any offer to
// OnAction. Hosts call it when the field appears or the app is foregrounded.
func (m *Monitor) Trigger(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.checkAndDispatch(ctx)
	}()
}

// Start begins polling if Interval is positive. It is a no-op otherwise or if
// already running.
func (m *Monitor) Start(ctx context.Context) {
	if m.opts.Interval <= 0 {
		return
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop(ctx, stopCh)
}

// Stop ends polling and waits for in-flight checks to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.running {
		m.running = false
		close(m.stopCh)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Monitor) pollLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.checkAndDispatch(ctx)
		}
	}
}

func (m *Monitor) checkAndDispatch(ctx context.Context) {
	action, err := m.CheckNow(ctx)
	if err != nil {
		m.log.Debug("clipboard read failed", "error", err)
		return
	}
	if action.Kind == None {
		return
	}
	m.opts.Dispatch(func() { m.opts.OnAction(action) })
}
