package signaling

import (
	"context"
	"time"

	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// handleNewPost fans a freshly created post out to every connection.
func (h *Hub) handleNewPost(env models.Envelope) {
	out := models.Envelope{Event: models.EventNewPost, Data: env.Data}
	for _, p := range h.peers {
		h.deliver(p, out)
	}
}

func (h *Hub) handleLikePost(p Peer, data any) {
	var req models.LikePostPayload
	if err := decodePayload(data, &req); err != nil || req.PostID == "" {
		h.log.Warn("dropping malformed likePost", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}
	if req.UserID = h.senderOf(p, req.UserID); req.UserID == "" {
		h.log.Warn("dropping likePost without user", zap.String("conn_id", p.ID()))
		return
	}

	posts := h.posts
	h.dirTasks.Submit("like-post", func(ctx context.Context) error {
		post, err := posts.Like(ctx, req.PostID, req.UserID)
		if err != nil {
			return errors.Wrapf(err, "like post %s", req.PostID)
		}
		h.post(broadcastEvent{env: models.Envelope{Event: models.EventPostUpdated, Data: post}})
		return nil
	})
}

func (h *Hub) handleCommentPost(p Peer, data any) {
	var req models.CommentPostPayload
	if err := decodePayload(data, &req); err != nil || req.PostID == "" || req.Text == "" {
		h.log.Warn("dropping malformed commentPost", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}
	if req.UserID = h.senderOf(p, req.UserID); req.UserID == "" {
		h.log.Warn("dropping commentPost without user", zap.String("conn_id", p.ID()))
		return
	}

	posts := h.posts
	comment := models.Comment{UserID: req.UserID, Text: req.Text, Timestamp: time.Now()}
	h.dirTasks.Submit("comment-post", func(ctx context.Context) error {
		post, err := posts.Comment(ctx, req.PostID, comment)
		if err != nil {
			return errors.Wrapf(err, "comment on post %s", req.PostID)
		}
		h.post(broadcastEvent{env: models.Envelope{Event: models.EventPostUpdated, Data: post}})
		return nil
	})
}
