// internal/app/store/subscribers/subscriberstore.go
package subscriberstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("subscriber not found")
	ErrEmailRequired = errors.New("email is required to receive emails")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("subscribers")}
}

// Upsert creates or updates the subscriber for s.UserID. created reports
// whether a new record was inserted.
func (s *Store) Upsert(ctx context.Context, sub models.Subscriber) (out models.Subscriber, created bool, err error) {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.EmailOptIn && sub.Email == "" {
		return models.Subscriber{}, false, ErrEmailRequired
	}
	now := time.Now().UTC()
	set := bson.M{
		"email":        sub.Email,
		"name":         sub.Name,
		"email_opt_in": sub.EmailOptIn,
		"updated_at":   now,
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": sub.UserID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return models.Subscriber{}, false, err
	}
	out, err = s.GetByUserID(ctx, sub.UserID)
	return out, res.UpsertedCount > 0, err
}

// GetByUserID returns the subscriber with the identity-provider user id.
func (s *Store) GetByUserID(ctx context.Context, userID string) (models.Subscriber, error) {
	var sub models.Subscriber
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Subscriber{}, ErrNotFound
		}
		return models.Subscriber{}, err
	}
	return sub, nil
}

// DeleteByUserID removes the member's subscription.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a newest-first page of subscribers.
func (s *Store) List(ctx context.Context, before *primitive.ObjectID, limit int) (paging.Page[models.Subscriber], error) {
	filter := bson.M{}
	var rows []models.Subscriber
	cur, err := s.c.Find(ctx, filter, paging.NewestFirst(filter, before, limit))
	if err != nil {
		return paging.Page[models.Subscriber]{}, err
	}
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Subscriber]{}, err
	}
	return paging.BuildPage(rows, limit, func(s models.Subscriber) primitive.ObjectID { return s.ID }), nil
}

// Count returns the number of subscribers and how many opted in to email.
func (s *Store) Count(ctx context.Context) (total, optedIn int64, err error) {
	total, err = s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, err
	}
	optedIn, err = s.c.CountDocuments(ctx, bson.M{"email_opt_in": true, "email": bson.M{"$ne": ""}})
	return total, optedIn, err
}

// Each streams every subscriber to fn in _id order, stopping at the first
// error fn returns.
func (s *Store) Each(ctx context.Context, fn func(models.Subscriber) error) error {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var sub models.Subscriber
		if err := cur.Decode(&sub); err != nil {
			return err
		}
		if err := fn(sub); err != nil {
			return err
		}
	}
	return cur.Err()
}
