package signaling

import (
	"context"
	"testing"

	"github.com/mossy-p/social-signaling/internal/directory"
	"github.com/mossy-p/social-signaling/internal/models"
	"go.uber.org/zap"
)

type fakePosts struct {
	posts map[string]*models.Post
}

func (f *fakePosts) Like(_ context.Context, postID, userID string) (*models.Post, error) {
	p, ok := f.posts[postID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	for _, l := range p.Likes {
		if l == userID {
			return p, nil
		}
	}
	p.Likes = append(p.Likes, userID)
	return p, nil
}

func (f *fakePosts) Comment(_ context.Context, postID string, c models.Comment) (*models.Post, error) {
	p, ok := f.posts[postID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	return p, nil
}

func newPostsHub(t *testing.T) (*Hub, *fakePosts) {
	t.Helper()
	posts := &fakePosts{posts: map[string]*models.Post{"p1": {ID: "p1"}}}
	h := NewHub(Options{Posts: posts, Log: zap.NewNop()})
	return h, posts
}

func TestPosts_LikeBroadcastsUpdate(t *testing.T) {
	h, posts := newPostsHub(t)
	a, b := newPeer("a"), newPeer("b")
	open(h, a, b)
	send(h, a, models.EventUserOnline, "alice")

	send(h, a, models.EventLikePost, map[string]any{"postId": "p1", "userId": "alice"})
	send(h, a, models.EventLikePost, map[string]any{"postId": "p1", "userId": "alice"})
	drainTasks(h)
	pending(h)

	if got := posts.posts["p1"].Likes; len(got) != 1 || got[0] != "alice" {
		t.Errorf("Expected a single like from alice, got %v", got)
	}
	for _, p := range []*fakePeer{a, b} {
		msgs := p.messages()
		if len(msgs) != 2 || msgs[0].Event != models.EventPostUpdated {
			t.Errorf("Expected %s to get two postUpdated frames, got %+v", p.id, msgs)
		}
	}
}

func TestPosts_CommentUsesSenderIdentity(t *testing.T) {
	h, posts := newPostsHub(t)
	a := newPeer("a")
	open(h, a)
	send(h, a, models.EventUserOnline, "alice")

	send(h, a, models.EventCommentPost, map[string]any{"postId": "p1", "userId": "mallory", "text": "nice"})
	drainTasks(h)
	pending(h)

	comments := posts.posts["p1"].Comments
	if len(comments) != 1 || comments[0].UserID != "alice" || comments[0].Text != "nice" {
		t.Errorf("Unexpected comments: %+v", comments)
	}
}

func TestPosts_MissingPostBroadcastsNothing(t *testing.T) {
	h, _ := newPostsHub(t)
	a := newPeer("a")
	open(h, a)
	send(h, a, models.EventLikePost, map[string]any{"postId": "nope", "userId": "alice"})
	send(h, a, models.EventCommentPost, map[string]any{"postId": "p1", "userId": "alice"})
	drainTasks(h)
	pending(h)

	if n := len(a.messages()); n != 0 {
		t.Errorf("Expected no broadcast, got %d", n)
	}
}

func TestPosts_NewPostReachesEveryone(t *testing.T) {
	h, _ := newPostsHub(t)
	a, b := newPeer("a"), newPeer("b")
	open(h, a, b)

	send(h, a, models.EventNewPost, map[string]any{"caption": "hello"})

	for _, p := range []*fakePeer{a, b} {
		if msgs := p.messages(); len(msgs) != 1 || msgs[0].Event != models.EventNewPost {
			t.Errorf("Expected %s to receive newPost, got %+v", p.id, msgs)
		}
	}
}
