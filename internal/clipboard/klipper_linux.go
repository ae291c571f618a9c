//go:build linux

package clipboard

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	klipperBusName = "org.kde.klipper"
	klipperPath    = dbus.ObjectPath("/klipper")
	klipperMethod  = "org.kde.klipper.klipper.getClipboardContents"
)

// KlipperAccessor reads the clipboard from KDE's Klipper over the session bus.
// It works on Wayland sessions where X11 tools cannot see the clipboard.
type KlipperAccessor struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewKlipperAccessor connects to the session bus and checks that Klipper is
// running.
func NewKlipperAccessor() (*KlipperAccessor, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrUnavailable, err)
	}

	var hasOwner bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, klipperBusName).Store(&hasOwner)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrUnavailable, klipperBusName, err)
	}
	if !hasOwner {
		return nil, fmt.Errorf("%w: %s not running", ErrUnavailable, klipperBusName)
	}

	return &KlipperAccessor{
		conn: conn,
		obj:  conn.Object(klipperBusName, klipperPath),
	}, nil
}

// Text returns Klipper's current clipboard entry.
func (k *KlipperAccessor) Text(ctx context.Context) (string, error) {
	var text string
	if err := k.obj.CallWithContext(ctx, klipperMethod, 0).Store(&text); err != nil {
		return "", fmt.Errorf("klipper: %w", err)
	}
	return text, nil
}
