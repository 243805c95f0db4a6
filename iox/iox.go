// Package iox provides small helpers for closing streams and files.
package iox

import (
	"context"
	"io"
)

// DiscardClose closes c and ignores the error. Intended for defer on
// read-only resources such as response bodies:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup registration.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// CloseOnDone closes c once ctx is done, unblocking a Read that would
// otherwise wait on the network. The returned stop detaches the hook and
// reports whether it did so before it ran.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() { _ = c.Close() })
}
