package authsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
)

const (
	notifyChannel       = "auth_events"
	listenerMinInterval = 10 * time.Second
	listenerMaxInterval = time.Minute
	listenerPingEvery   = 90 * time.Second
)

// PostgresBus relays notices through LISTEN/NOTIFY so every app instance sharing the database sees them.
// Notices published here come back through the listener like any other.
type PostgresBus struct {
	db       *sqlx.DB
	listener *pq.Listener
	local    *MemoryBus
	logger   core.Logger
	done     chan struct{}
}

var _ Bus = (*PostgresBus)(nil) // interface compliance check

func NewPostgresBus(db *sqlx.DB, dsn string, logger core.Logger) (*PostgresBus, error) {
	listener := pq.NewListener(dsn, listenerMinInterval, listenerMaxInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("authsvc: postgres listener", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, errors.Wrap(err, "listening to "+notifyChannel)
	}

	b := &PostgresBus{
		db:       db,
		listener: listener,
		local:    NewMemoryBus(),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go b.relay()
	return b, nil
}

func (b *PostgresBus) Publish(ctx context.Context, n Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "encoding notice")
	}
	_, err = b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", notifyChannel, string(payload))
	return errors.Wrap(err, "notifying")
}

func (b *PostgresBus) Subscribe(handler func(Notice)) func() {
	return b.local.Subscribe(handler)
}

func (b *PostgresBus) Close() error {
	close(b.done)
	return b.listener.Close()
}

func (b *PostgresBus) relay() {
	for {
		select {
		case <-b.done:
			return
		case pn, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			if pn == nil { // connection re-established; notices sent meanwhile are lost
				continue
			}
			var n Notice
			if err := json.Unmarshal([]byte(pn.Extra), &n); err != nil {
				b.logger.Warn("authsvc: decoding notice", err)
				continue
			}
			_ = b.local.Publish(context.Background(), n)
		case <-time.After(listenerPingEvery):
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.logger.Warn("authsvc: pinging postgres listener", err)
				}
			}()
		}
	}
}
