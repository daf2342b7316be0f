package signaling

import (
	"context"

	"github.com/mossy-p/social-signaling/internal/directory"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (h *Hub) handleOpen(p Peer) {
	h.peers[p.ID()] = p
	h.log.Info("connection opened",
		zap.String("conn_id", p.ID()), zap.String("token_user", p.UserID()))
}

func (h *Hub) handleUserOnline(p Peer, data any) {
	userID, err := decodeUserID(data)
	if err != nil {
		h.log.Warn("dropping userOnline", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}
	if userID == "" {
		userID = p.UserID()
	}
	if userID == "" {
		h.log.Warn("dropping userOnline without user id", zap.String("conn_id", p.ID()))
		return
	}
	if p.UserID() != "" && p.UserID() != userID {
		h.log.Warn("rejecting userOnline for another identity",
			zap.String("conn_id", p.ID()),
			zap.String("token_user", p.UserID()),
			zap.String("user_id", userID))
		return
	}

	// Re-announcing under a new id moves the association; the old id is gone.
	if prevUser, ok := h.registry.UserFor(p.ID()); ok && prevUser != userID {
		h.wentOffline(prevUser, p)
	}

	h.registry.Register(userID, p)
	h.setActive(userID, true)
	if h.remote != nil {
		h.remote.register(userID, p.ID())
	}

	h.log.Info("user online", zap.String("user_id", userID), zap.String("conn_id", p.ID()))
}

// handleClose runs cleanup for a closed connection. Closing an unknown or
// already closed connection does nothing.
func (h *Hub) handleClose(p Peer) {
	if _, open := h.peers[p.ID()]; !open {
		return
	}
	delete(h.peers, p.ID())
	h.rooms.leaveAll(p.ID())

	if userID, ok := h.registry.UserFor(p.ID()); ok {
		if h.registry.Unregister(userID, p) {
			h.wentOffline(userID, p)
		}
	}

	h.log.Info("connection closed", zap.String("conn_id", p.ID()))
}

// wentOffline is called after userID's entry for p was removed from the
// registry.
func (h *Hub) wentOffline(userID string, p Peer) {
	h.setActive(userID, false)
	if h.remote != nil {
		h.remote.unregister(userID, p.ID())
	}
	h.log.Info("user offline", zap.String("user_id", userID), zap.String("conn_id", p.ID()))
}

// setActive records the flag in the directory off the dispatch goroutine.
// The queue is FIFO, so writes for a user land in event order.
func (h *Hub) setActive(userID string, active bool) {
	dir := h.dir
	h.dirTasks.Submit("set-active", func(ctx context.Context) error {
		err := dir.UpdateIsActive(ctx, userID, active)
		if errors.Is(err, directory.ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "mark %s active=%v", userID, active)
	})
}
