package store

import (
	"context"
	"errors"
	"time"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// MongoUserStore handles user persistence on a MongoDB collection.
// Email and username uniqueness is enforced by unique indexes; integer
// IDs come from an atomically incremented counters collection.
type MongoUserStore struct {
	client      *mongo.Client
	collection  *mongo.Collection
	counterColl *mongo.Collection
}

// NewMongoUserStore connects, pings, and ensures the required indexes.
func NewMongoUserStore(ctx context.Context, cfg config.MongoConfig) (*MongoUserStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(cfg.Database)
	s := &MongoUserStore{
		client:      client,
		collection:  db.Collection(cfg.Collection),
		counterColl: db.Collection(cfg.Counters),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoUserStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("userid_unique"),
		},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoUserStore) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.findOne(ctx, bson.M{"user_id": id})
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var user types.User
	err := s.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.User{}, ErrNotFound
	}
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (s *MongoUserStore) Create(ctx context.Context, user types.User) (types.User, error) {
	id, err := s.nextSequence(ctx, "user_id")
	if err != nil {
		return types.User{}, err
	}

	now := time.Now()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = s.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return types.User{}, ErrDuplicate
	}
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (s *MongoUserStore) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"username":      user.Username,
		"email":         user.Email,
		"full_name":     user.FullName,
		"role":          user.Role,
		"is_active":     user.IsActive,
		"password_hash": user.PasswordHash,
		"last_login":    user.LastLogin,
		"updated_at":    user.UpdatedAt,
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"user_id": user.ID}, update)
	if mongo.IsDuplicateKeyError(err) {
		return types.User{}, ErrDuplicate
	}
	if err != nil {
		return types.User{}, err
	}
	if result.MatchedCount == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MongoUserStore) SetLastLogin(ctx context.Context, id int64, when time.Time) error {
	update := bson.M{"$set": bson.M{
		"last_login": when,
		"updated_at": when,
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"user_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "user_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := make([]types.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, int(total), nil
}

// Close terminates the client connection.
func (s *MongoUserStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nextSequence atomically increments a named counter and returns the new value.
func (s *MongoUserStore) nextSequence(ctx context.Context, name string) (int64, error) {
	result := s.counterColl.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := result.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
