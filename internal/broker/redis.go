package broker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "signal:"

type Redis struct {
	client *redis.Client
	log    *zap.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

func NewRedis(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log}
}

func (r *Redis) Publish(ctx context.Context, instance string, d Delivery) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, redisChannelPrefix+instance, data).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", instance)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, instance string, h Handler) error {
	ps := r.client.Subscribe(ctx, redisChannelPrefix+instance)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return errors.Wrapf(err, "subscribe to %s", instance)
	}

	r.mu.Lock()
	r.subs = append(r.subs, ps)
	r.mu.Unlock()

	go func() {
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				d, err := decode([]byte(msg.Payload))
				if err != nil {
					r.log.Warn("dropping undecodable delivery", zap.Error(err))
					continue
				}
				h(d)
			}
		}
	}()
	return nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ps := range r.subs {
		_ = ps.Close()
	}
	r.subs = nil
	return nil
}
