// Package signaling routes real-time events between WebSocket connections.
//
// A Hub owns the presence registry, room membership and the set of open
// connections. All of them are touched only from the goroutine running
// Hub.Run, which processes one event to completion before taking the next.
// Transport goroutines and background tasks talk to it by posting events.
package signaling

import (
	"context"
	"time"

	"github.com/mossy-p/social-signaling/internal/directory"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/mossy-p/social-signaling/internal/presence"
	"github.com/mossy-p/social-signaling/internal/worker"
	"go.uber.org/zap"
)

// Peer is one live connection. Send must not block.
type Peer interface {
	ID() string
	// UserID is the identity proven by the connection's bearer token, or
	// empty for anonymous connections.
	UserID() string
	Send(env models.Envelope) bool
}

type Options struct {
	EventBuffer int
	Directory   directory.Directory
	Posts       directory.PostStore
	// Remote enables cross-instance presence; nil means single instance.
	Remote *Remote
	Log    *zap.Logger
}

type Hub struct {
	registry *presence.Registry[Peer]
	rooms    *rooms
	peers    map[string]Peer

	events chan event
	done   chan struct{}

	dir      directory.Directory
	posts    directory.PostStore
	dirTasks *worker.Queue
	remote   *Remote
	log      *zap.Logger
}

type event interface{}

type (
	openEvent    struct{ peer Peer }
	closeEvent   struct{ peer Peer }
	messageEvent struct {
		peer Peer
		env  models.Envelope
	}
	// broadcastEvent goes to every open connection.
	broadcastEvent struct{ env models.Envelope }
	queryEvent     struct {
		fn   func()
		done chan struct{}
	}
)

func NewHub(opts Options) *Hub {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 1024
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Directory == nil {
		opts.Directory = directory.Noop{}
	}
	if opts.Posts == nil {
		opts.Posts = directory.Noop{}
	}
	return &Hub{
		registry: presence.NewRegistry[Peer](),
		rooms:    newRooms(),
		peers:    make(map[string]Peer),
		events:   make(chan event, opts.EventBuffer),
		done:     make(chan struct{}),
		dir:      opts.Directory,
		posts:    opts.Posts,
		dirTasks: worker.NewQueue("directory", 1024, 5*time.Second, opts.Log),
		remote:   opts.Remote,
		log:      opts.Log,
	}
}

// Run processes events until ctx is cancelled. Background directory writes
// already queued are allowed to finish after it returns.
func (h *Hub) Run(ctx context.Context) error {
	bg := context.WithoutCancel(ctx)
	go h.dirTasks.Run(bg)
	defer h.dirTasks.Stop()
	defer close(h.done)

	if h.remote != nil {
		if err := h.remote.start(ctx, h); err != nil {
			return err
		}
		defer h.remote.stop()
	}

	h.log.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub stopped", zap.Int("connections", len(h.peers)))
			return nil
		case ev := <-h.events:
			h.process(ev)
		}
	}
}

func (h *Hub) process(ev event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("event handler panicked", zap.Any("panic", r))
		}
	}()

	switch e := ev.(type) {
	case openEvent:
		h.handleOpen(e.peer)
	case closeEvent:
		h.handleClose(e.peer)
	case messageEvent:
		h.handleMessage(e.peer, e.env)
	case broadcastEvent:
		for _, p := range h.peers {
			h.deliver(p, e.env)
		}
	case deliverEvent:
		h.handleRemoteDelivery(e)
	case callFailedEvent:
		if p, ok := h.peers[e.connID]; ok {
			h.deliver(p, callFailed())
		}
	case queryEvent:
		e.fn()
		close(e.done)
	default:
		h.log.Warn("unknown hub event", zap.Any("event", ev))
	}
}

// post hands an event to the loop. Returns false once the hub has stopped.
func (h *Hub) post(ev event) bool {
	if h.stopped() {
		return false
	}
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Open, Close and Dispatch are called by the transport. Calls made from one
// goroutine are processed in the order they were made.

func (h *Hub) Open(p Peer) bool { return h.post(openEvent{peer: p}) }

func (h *Hub) Close(p Peer) bool { return h.post(closeEvent{peer: p}) }

func (h *Hub) Dispatch(p Peer, env models.Envelope) bool {
	return h.post(messageEvent{peer: p, env: env})
}

// query runs fn on the dispatch goroutine and waits for it.
func (h *Hub) query(ctx context.Context, fn func()) error {
	if h.stopped() {
		return ErrHubStopped
	}
	q := queryEvent{fn: fn, done: make(chan struct{})}
	select {
	case h.events <- q:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// IsOnline reports whether userID has a live connection on this instance.
// IsOnline reports whether userID can be reached for signaling. With shared
// presence configured, a user held by another instance counts as online.
func (h *Hub) IsOnline(ctx context.Context, userID string) (bool, error) {
	var online bool
	err := h.query(ctx, func() {
		_, online = h.registry.Lookup(userID)
	})
	if err != nil || online || h.remote == nil {
		return online, err
	}
	return h.remote.online(ctx, userID)
}

func (h *Hub) Stats(ctx context.Context) (models.HubStats, error) {
	var s models.HubStats
	err := h.query(ctx, func() {
		s = models.HubStats{
			Connections: len(h.peers),
			OnlineUsers: h.registry.Len(),
			Rooms:       h.rooms.len(),
		}
	})
	return s, err
}

func (h *Hub) handleMessage(p Peer, env models.Envelope) {
	if _, open := h.peers[p.ID()]; !open {
		h.log.Debug("dropping event from unknown connection",
			zap.String("conn_id", p.ID()), zap.String("event", string(env.Event)))
		return
	}

	switch env.Event {
	case models.EventUserOnline:
		h.handleUserOnline(p, env.Data)
	case models.EventJoinChat:
		h.handleJoinChat(p, env.Data)
	case models.EventLeaveChat:
		h.handleLeaveChat(p, env.Data)
	case models.EventSendMessage:
		h.handleSendMessage(p, env)
	case models.EventCallUser, models.EventAnswerCall, models.EventRejectCall, models.EventEndCall,
		models.EventOffer, models.EventAnswer, models.EventICECandidate:
		h.handleRelay(p, env)
	case models.EventNewPost:
		h.handleNewPost(env)
	case models.EventLikePost:
		h.handleLikePost(p, env.Data)
	case models.EventCommentPost:
		h.handleCommentPost(p, env.Data)
	default:
		h.log.Warn("unknown event type",
			zap.String("conn_id", p.ID()), zap.String("event", string(env.Event)))
		h.deliver(p, models.Envelope{
			Event: models.EventError,
			Data:  models.ErrorPayload{Message: "unknown event: " + string(env.Event)},
		})
	}
}

func (h *Hub) deliver(p Peer, env models.Envelope) {
	if !p.Send(env) {
		h.log.Warn("failed to send message, buffer full",
			zap.String("conn_id", p.ID()), zap.String("event", string(env.Event)))
	}
}
