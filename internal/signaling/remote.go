package signaling

import (
	"context"
	"time"

	"github.com/mossy-p/social-signaling/internal/broker"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/mossy-p/social-signaling/internal/presence"
	"github.com/mossy-p/social-signaling/internal/worker"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PresenceStore is the shared, compare-and-delete capable view of presence
// across instances. presence.RedisStore implements it.
type PresenceStore interface {
	Register(ctx context.Context, userID string, owner presence.Owner) error
	Unregister(ctx context.Context, userID string, owner presence.Owner) (bool, error)
	Owner(ctx context.Context, userID string) (presence.Owner, error)
}

type (
	// deliverEvent carries a frame published to this instance by another.
	deliverEvent struct{ d broker.Delivery }
	// callFailedEvent asks the loop to tell connID its callee is offline.
	callFailedEvent struct{ connID string }
)

// Remote mirrors local presence into a shared store and forwards frames for
// users held by other instances through a broker.
//
// Mirror writes and remote lookups share one FIFO queue, so a register
// followed by an unregister for the same user is applied in that order and
// frames for one target leave in the order they were relayed.
type Remote struct {
	instance string
	store    PresenceStore
	broker   broker.Broker
	tasks    *worker.Queue
	log      *zap.Logger
}

func NewRemote(instance string, store PresenceStore, b broker.Broker, log *zap.Logger) *Remote {
	return &Remote{
		instance: instance,
		store:    store,
		broker:   b,
		tasks:    worker.NewQueue("remote", 4096, 3*time.Second, log),
		log:      log.With(zap.String("instance", instance)),
	}
}

func (r *Remote) start(ctx context.Context, h *Hub) error {
	err := r.broker.Subscribe(ctx, r.instance, func(d broker.Delivery) {
		h.post(deliverEvent{d: d})
	})
	if err != nil {
		return errors.Wrap(err, "subscribe to broker")
	}
	go r.tasks.Run(context.WithoutCancel(ctx))
	r.log.Info("shared presence enabled")
	return nil
}

func (r *Remote) stop() {
	r.tasks.Stop()
}

func (r *Remote) owner(connID string) presence.Owner {
	return presence.Owner{Instance: r.instance, ConnID: connID}
}

func (r *Remote) register(userID, connID string) {
	owner := r.owner(connID)
	r.tasks.Submit("presence-register", func(ctx context.Context) error {
		return r.store.Register(ctx, userID, owner)
	})
}

func (r *Remote) unregister(userID, connID string) {
	owner := r.owner(connID)
	r.tasks.Submit("presence-unregister", func(ctx context.Context) error {
		_, err := r.store.Unregister(ctx, userID, owner)
		return err
	})
}

// online reports whether another instance holds userID. An entry naming
// this instance is stale, since the local registry was already checked.
func (r *Remote) online(ctx context.Context, userID string) (bool, error) {
	owner, err := r.store.Owner(ctx, userID)
	if errors.Is(err, presence.ErrNoOwner) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "look up shared presence")
	}
	return owner.Instance != r.instance, nil
}

// route resolves a user not held locally. When notify is set, an
// unresolvable target is reported back to senderConn as callFailed.
func (r *Remote) route(h *Hub, senderConn, to string, frame models.Envelope, notify bool) {
	r.tasks.Submit("route", func(ctx context.Context) error {
		owner, err := r.store.Owner(ctx, to)
		// Our own id in the store means the entry is stale: the user is not
		// in the local registry or the frame would not be here.
		if errors.Is(err, presence.ErrNoOwner) || (err == nil && owner.Instance == r.instance) {
			if notify {
				h.post(callFailedEvent{connID: senderConn})
			}
			return nil
		}
		if err != nil {
			if notify {
				h.post(callFailedEvent{connID: senderConn})
			}
			return err
		}

		return r.broker.Publish(ctx, owner.Instance, broker.Delivery{
			Origin:   r.instance,
			ToUser:   to,
			ConnID:   owner.ConnID,
			Envelope: frame,
		})
	})
}

// handleRemoteDelivery hands a brokered frame to the user's current local
// connection. If the user has left since, the frame is dropped.
func (h *Hub) handleRemoteDelivery(e deliverEvent) {
	peer, ok := h.registry.Lookup(e.d.ToUser)
	if !ok {
		h.log.Debug("dropping remote delivery for absent user",
			zap.String("user_id", e.d.ToUser), zap.String("origin", e.d.Origin))
		return
	}
	h.deliver(peer, e.d.Envelope)
}
