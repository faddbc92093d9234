// Options for snapshot fanout and the NATS upstream.
package pubsub

import (
	"time"

	"github.com/gavelhq/gavel/pkg/logger"
)

// Option configures a Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithUpstream attaches an external publisher that receives every
// snapshot after local fanout.
func WithUpstream(upstream Upstream) Option {
	return func(b *Broker) {
		if upstream != nil {
			b.upstream = upstream
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Broker) {
		if log != nil {
			b.log = log
		}
	}
}

// NATSOption configures a NATSUpstream before it connects.
type NATSOption func(*NATSUpstream)

// WithSubjectPrefix sets the subject prefix snapshots publish under.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(u *NATSUpstream) {
		if prefix != "" {
			u.subjectPrefix = prefix
		}
	}
}

// WithConnectName sets the client name reported to the NATS server.
func WithConnectName(name string) NATSOption {
	return func(u *NATSUpstream) {
		if name != "" {
			u.connectName = name
		}
	}
}

// WithReconnectWait sets the delay between reconnect attempts.
func WithReconnectWait(wait time.Duration) NATSOption {
	return func(u *NATSUpstream) {
		if wait > 0 {
			u.reconnectWait = wait
		}
	}
}

// WithMaxReconnects caps reconnect attempts; negative means retry
// forever.
func WithMaxReconnects(max int) NATSOption {
	return func(u *NATSUpstream) {
		u.maxReconnects = max
	}
}
