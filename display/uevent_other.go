//go:build !linux

package display

import (
	"context"
	"errors"
)

// Watch implements [Watcher]. It is only supported on Linux.
func (u Uevents) Watch(ctx context.Context, fn func()) error {
	return errors.ErrUnsupported
}
