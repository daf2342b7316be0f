package directory

import (
	"context"

	"github.com/mossy-p/social-signaling/config"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// Connect opens a MongoDB client and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.Timeout)

	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}
	return client, nil
}

// Mongo implements Directory and PostStore on the users and posts
// collections.
type Mongo struct {
	users *mongo.Collection
	posts *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users: db.Collection(usersCollection),
		posts: db.Collection(postsCollection),
	}
}

// idFilter matches _id as an ObjectID when the id is hex, else as a string.
func idFilter(id string) bson.M {
	return bson.M{"_id": docID(id)}
}

func docID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func (m *Mongo) FindByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := m.users.FindOne(ctx, idFilter(userID)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user %s", userID)
	}
	return &u, nil
}

func (m *Mongo) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := m.users.CountDocuments(ctx, idFilter(userID), options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrapf(err, "count user %s", userID)
	}
	return n > 0, nil
}

func (m *Mongo) UpdateIsActive(ctx context.Context, userID string, active bool) error {
	res, err := m.users.UpdateOne(ctx, idFilter(userID), bson.M{"$set": bson.M{"isActive": active}})
	if err != nil {
		return errors.Wrapf(err, "update isActive for %s", userID)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Like adds userID to the post's likes once and returns the updated post.
func (m *Mongo) Like(ctx context.Context, postID, userID string) (*models.Post, error) {
	update := bson.M{"$addToSet": bson.M{"likes": docID(userID)}}
	return m.updatePost(ctx, postID, update)
}

func (m *Mongo) Comment(ctx context.Context, postID string, c models.Comment) (*models.Post, error) {
	update := bson.M{"$push": bson.M{"comments": bson.M{
		"userId":    docID(c.UserID),
		"username":  c.Username,
		"text":      c.Text,
		"timestamp": c.Timestamp,
		"replies":   bson.A{},
	}}}
	return m.updatePost(ctx, postID, update)
}

func (m *Mongo) updatePost(ctx context.Context, postID string, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Post
	err := m.posts.FindOneAndUpdate(ctx, idFilter(postID), update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "update post %s", postID)
	}
	return &p, nil
}
