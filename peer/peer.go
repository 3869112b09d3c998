// Package peer signals a cooperating remote process, typically the paired
// transmitter, that a segment ended.
package peer

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single notification.
const DefaultTimeout = 10 * time.Second

// Signal is what the peer is asked to do.
type Signal string

const (
	// Advance stops the peer's current step so it follows to the next frequency.
	Advance Signal = "advance"
	// Abort terminates the peer.
	Abort Signal = "abort"
)

type Notifier interface {
	NotifyAdvance(ctx context.Context) error
	NotifyAbort(ctx context.Context) error
}

// Nop is used when no peer is configured.
type Nop struct{}

func (Nop) NotifyAdvance(context.Context) error { return nil }
func (Nop) NotifyAbort(context.Context) error { return nil }
