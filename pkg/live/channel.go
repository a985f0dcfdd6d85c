package live

import "context"

// Channel is an abstract bidirectional message transport. A Channel
// instance is single-use: once closed it is never reopened, and the
// protocol client never reuses a superseded instance (guards against
// stale-callback races).
type Channel interface {
	// Open establishes the connection. It returns once the transport
	// reports open, or with the underlying transport error.
	Open(ctx context.Context, url string) error

	// Send transmits one complete frame.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until the next inbound frame arrives. It returns an
	// error when the channel closes, normally or otherwise.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// ChannelFactory produces a fresh Channel per connection attempt.
type ChannelFactory func() Channel
