package directory

import (
	"context"

	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a user or post does not exist.
var ErrNotFound = errors.New("directory: not found")

// Directory is the account store the relay consults. It is only used for
// best-effort activity flags and token issuance, never on the signaling
// hot path.
type Directory interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	UpdateIsActive(ctx context.Context, userID string, active bool) error
}

// PostStore persists likes and comments coming in over the socket.
type PostStore interface {
	Like(ctx context.Context, postID, userID string) (*models.Post, error)
	Comment(ctx context.Context, postID string, c models.Comment) (*models.Post, error)
}

// Noop is used when no database is configured. Every user exists, updates
// are discarded and posts are never found.
type Noop struct{}

func (Noop) FindByID(_ context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Username: userID}, nil
}

func (Noop) Exists(context.Context, string) (bool, error) { return true, nil }

func (Noop) UpdateIsActive(context.Context, string, bool) error { return nil }

func (Noop) Like(context.Context, string, string) (*models.Post, error) {
	return nil, ErrNotFound
}

func (Noop) Comment(context.Context, string, models.Comment) (*models.Post, error) {
	return nil, ErrNotFound
}
