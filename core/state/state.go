// Package state keeps the per-user conversation step between updates.
package state

import (
	"context"
	"time"
)

// State identifies the step a conversation is waiting on.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// DefaultTTL bounds how long a pending step survives after it was set.
const DefaultTTL = 30 * time.Minute

// Store persists conversation state per user. Get returns StateIdle for users
// without a stored or unexpired state.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, st State) error
	Clear(ctx context.Context, userID int64) error
}

// Active reports whether st is a pending step.
func Active(st State) bool {
	return st != "" && st != StateIdle
}
