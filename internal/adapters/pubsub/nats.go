package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
)

// Constants for the NATS upstream.
const (
	defaultSubjectPrefix = "gavel.draft"
	defaultConnectName   = "gavel-inflation"
	defaultReconnectWait = 2 * time.Second
	// defaultMaxReconnects of -1 retries forever; snapshots published
	// while disconnected are dropped, which is acceptable for a feed
	// where each snapshot supersedes the last.
	defaultMaxReconnects = -1
)

// NATSUpstream publishes snapshots to a core NATS subject per draft.
// Delivery is at-most-once; consumers that need history should keep
// their own.
type NATSUpstream struct {
	conn *nats.Conn

	subjectPrefix string
	connectName   string
	reconnectWait time.Duration
	maxReconnects int
}

// NewNATSUpstream connects to the given NATS URL and returns an
// upstream ready to publish.
func NewNATSUpstream(url string, opts ...NATSOption) (*NATSUpstream, error) {
	if url == "" {
		return nil, ErrMissingNATSURL
	}

	u := &NATSUpstream{
		subjectPrefix: defaultSubjectPrefix,
		connectName:   defaultConnectName,
		reconnectWait: defaultReconnectWait,
		maxReconnects: defaultMaxReconnects,
	}

	for _, opt := range opts {
		opt(u)
	}

	conn, err := nats.Connect(url,
		nats.Name(u.connectName),
		nats.ReconnectWait(u.reconnectWait),
		nats.MaxReconnects(u.maxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	u.conn = conn

	return u, nil
}

// Publish sends the snapshot as JSON to <prefix>.<draft>.inflation.
func (u *NATSUpstream) Publish(ctx context.Context, snapshot model.InflationSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(types.SnapshotPayloadFrom(snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	subject := u.subject(snapshot.DraftID)
	if err := u.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	return nil
}

// Close drains the connection so buffered publishes flush before the
// socket goes away.
func (u *NATSUpstream) Close() {
	if u.conn == nil {
		return
	}
	if err := u.conn.Drain(); err != nil {
		u.conn.Close()
	}
}

func (u *NATSUpstream) subject(draftID string) string {
	return u.subjectPrefix + "." + subjectToken(draftID) + ".inflation"
}

// subjectToken makes a draft id safe for use as a NATS subject token.
// Dots, spaces and wildcard characters would change subject semantics,
// so they are replaced rather than passed through.
func subjectToken(id string) string {
	if id == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '-'
		}
		return r
	}, id)
}
