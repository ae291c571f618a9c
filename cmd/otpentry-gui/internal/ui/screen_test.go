package ui

import (
	"context"
	"image"
	"io"
	"log/slog"
	"testing"
	"time"

	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otpentry/cmd/otpentry-gui/internal/theme"
	"otpentry/internal/clipboard"
	"otpentry/internal/config"
	"otpentry/internal/entry"
	"otpentry/internal/otp"
)

func newTestScreen(t *testing.T, clip string) (*Screen, *entry.Session) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Clipboard.Source = clipboard.SourceNone

	s := NewScreen(theme.NewTheme(material.NewTheme()))
	opts := s.Options()
	opts.Config = cfg
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Accessor = clipboard.AccessorFunc(func(context.Context) (string, error) { return clip, nil })
	opts.Snapshot = &clipboard.Snapshot{}
	opts.Scheduler = otp.NewManualClock(time.Unix(0, 0))

	sess, err := entry.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	s.Bind(sess)
	return s, sess
}

func TestOfferAccept(t *testing.T) {
	s, sess := newTestScreen(t, "482913")

	posted := make(chan struct{}, 1)
	sess.Loop.SetNotify(func() {
		select {
		case posted <- struct{}{}:
		default:
		}
	})
	sess.CheckClipboard(context.Background())
	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("clipboard offer was not posted")
	}
	sess.Loop.Drain()

	banner, offer := s.Banner()
	assert.Equal(t, BannerOffer, banner)
	assert.Equal(t, "482913", offer)

	s.Accept()
	banner, _ = s.Banner()
	assert.Equal(t, BannerComplete, banner)
	value, ok := sess.Reconciler.JoinedValue()
	assert.True(t, ok)
	assert.Equal(t, "482913", value)
}

func TestOfferIgnoredAfterCompletion(t *testing.T) {
	s, _ := newTestScreen(t, "")
	s.Completed("123456")
	s.Offered("654321")
	banner, offer := s.Banner()
	assert.Equal(t, BannerComplete, banner)
	assert.Empty(t, offer)
}

func TestAbandonedClearedOnFocus(t *testing.T) {
	s, sess := newTestScreen(t, "")
	s.Abandoned()
	sess.Reconciler.SetFocus(2)
	banner, _ := s.Banner()
	assert.Equal(t, BannerNone, banner)
}

func TestClear(t *testing.T) {
	s, sess := newTestScreen(t, "")
	sess.Reconciler.HandleEdit(0, "123456", 0)
	banner, _ := s.Banner()
	require.Equal(t, BannerComplete, banner)

	s.Clear()
	banner, _ = s.Banner()
	assert.Equal(t, BannerNone, banner)
	assert.Equal(t, 0, sess.Reconciler.Focus())
	assert.False(t, sess.Reconciler.IsComplete())
}

func TestRangeLength(t *testing.T) {
	assert.Equal(t, 0, rangeLength(key.Range{Start: 0, End: 0}))
	assert.Equal(t, 1, rangeLength(key.Range{Start: 0, End: 1}))
	assert.Equal(t, 1, rangeLength(key.Range{Start: 1, End: 0}))
	assert.Equal(t, 1, rangeLength(key.Range{Start: 0, End: 3}))
}

func TestLayoutSmoke(t *testing.T) {
	s, sess := newTestScreen(t, "")
	gtx := layout.Context{
		Ops:         new(op.Ops),
		Constraints: layout.Exact(image.Pt(800, 600)),
		Metric:      unit.Metric{PxPerDp: 1, PxPerSp: 1},
	}

	dims := s.Layout(gtx)
	assert.NotZero(t, dims.Size.Y)
	assert.Equal(t, 0, sess.Reconciler.Focus(), "first frame focuses the first cell")

	sess.Reconciler.HandleEdit(0, "7", 0)
	s.Offered("111111")
	gtx.Ops.Reset()
	s.Layout(gtx)
}
