package events

import (
	"context"
	"errors"
)

// ErrTimeout is returned by a Source when no event arrived within its idle
// timeout. It is a tick, not a failure.
var ErrTimeout = errors.New("event source timeout")

// Source delivers decoded events in order. Next returns io.EOF at end of
// stream; any error other than ErrTimeout and io.EOF is an upstream failure.
type Source interface {
	Next(ctx context.Context) (*SysFlowEvent, error)
	Close() error
}
