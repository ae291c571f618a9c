//go:build !linux

package clipboard

import "context"

// KlipperAccessor is only available on Linux.
type KlipperAccessor struct{}

// NewKlipperAccessor always fails outside Linux.
func NewKlipperAccessor() (*KlipperAccessor, error) {
	return nil, ErrUnavailable
}

// Text always fails outside Linux.
func (k *KlipperAccessor) Text(context.Context) (string, error) {
	return "", ErrUnavailable
}
