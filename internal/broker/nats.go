package broker

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const natsSubjectPrefix = "signal."

type NATS struct {
	nc  *nats.Conn
	log *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// ConnectNATS dials the server with unlimited reconnects.
func ConnectNATS(url, name string, log *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}
	return NewNATS(nc, log), nil
}

func NewNATS(nc *nats.Conn, log *zap.Logger) *NATS {
	return &NATS{nc: nc, log: log}
}

func (n *NATS) Publish(_ context.Context, instance string, d Delivery) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(natsSubjectPrefix+instance, data); err != nil {
		return errors.Wrapf(err, "publish to %s", instance)
	}
	return nil
}

func (n *NATS) Subscribe(ctx context.Context, instance string, h Handler) error {
	sub, err := n.nc.Subscribe(natsSubjectPrefix+instance, func(msg *nats.Msg) {
		d, err := decode(msg.Data)
		if err != nil {
			n.log.Warn("dropping undecodable delivery", zap.Error(err))
			return
		}
		h(d)
	})
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s", instance)
	}
	if err := n.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return errors.Wrap(err, "flush subscription")
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (n *NATS) Close() error {
	n.mu.Lock()
	for _, sub := range n.subs {
		_ = sub.Unsubscribe()
	}
	n.subs = nil
	n.mu.Unlock()
	return n.nc.Drain()
}
