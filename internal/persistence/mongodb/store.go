// Package mongodb persists tracker records as MongoDB documents, one document
// per user with its exercises embedded.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"example.com/exercisetracker/internal/domain"
)

const collectionName = "trackers"

type trackerDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Exercises []exerciseDoc      `bson:"exercises"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type exerciseDoc struct {
	Description string    `bson:"description"`
	Duration    float64   `bson:"duration"`
	Date        time.Time `bson:"date"`
}

// Store implements domain.Store on a single collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials uri, verifies the connection and ensures the username index.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &Store{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateUser implements domain.Store.
func (s *Store) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	doc := trackerDoc{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Exercises: []exerciseDoc{},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}
	return toDomain(doc), nil
}

// FindUserByUsername implements domain.Store.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

// GetUser implements domain.Store.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidIdentity
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc trackerDoc
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(doc), nil
}

// ListUsers implements domain.Store. ObjectIDs sort in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"exercises": 0})

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []trackerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, *toDomain(doc))
	}
	return users, nil
}

// AppendExercise pushes onto the embedded array in a single atomic update.
func (s *Store) AppendExercise(ctx context.Context, id string, exercise domain.Exercise) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidIdentity
	}

	update := bson.M{"$push": bson.M{"exercises": exerciseDoc{
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        exercise.Date.UTC(),
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc trackerDoc
	if err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUnknownUser
		}
		return nil, err
	}
	return toDomain(doc), nil
}

func toDomain(doc trackerDoc) *domain.User {
	user := &domain.User{
		ID:        doc.ID.Hex(),
		Username:  doc.Username,
		Exercises: make([]domain.Exercise, 0, len(doc.Exercises)),
		CreatedAt: doc.CreatedAt.UTC(),
	}
	for _, ex := range doc.Exercises {
		user.Exercises = append(user.Exercises, domain.Exercise{
			Description: ex.Description,
			Duration:    ex.Duration,
			Date:        ex.Date.UTC(),
		})
	}
	return user
}
