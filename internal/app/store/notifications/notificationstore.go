// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("notification not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// CreateMany inserts one notification per entry, stamping ids and
// timestamps. It returns the number inserted.
func (s *Store) CreateMany(ctx context.Context, ns []models.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(ns))
	for i := range ns {
		ns[i].ID = primitive.NewObjectID()
		ns[i].Read = false
		ns[i].ReadAt = nil
		ns[i].CreatedAt = now
		docs[i] = ns[i]
	}
	res, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil {
		return len(res.InsertedIDs), err
	}
	return 0, err
}

// Create inserts a single notification.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	ns := []models.Notification{n}
	if _, err := s.CreateMany(ctx, ns); err != nil {
		return models.Notification{}, err
	}
	return ns[0], nil
}

// ListForUser returns a newest-first page of userID's notifications.
func (s *Store) ListForUser(ctx context.Context, userID string, unreadOnly bool, before *primitive.ObjectID, limit int) (paging.Page[models.Notification], error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	var rows []models.Notification
	cur, err := s.c.Find(ctx, filter, paging.NewestFirst(filter, before, limit))
	if err != nil {
		return paging.Page[models.Notification]{}, err
	}
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Notification]{}, err
	}
	return paging.BuildPage(rows, limit, func(n models.Notification) primitive.ObjectID { return n.ID }), nil
}

// UnreadCount counts userID's unread notifications.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// MarkRead marks one of userID's notifications read. Another member's
// notification is ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, userID string, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		[]bson.M{{"$set": bson.M{
			"read":    true,
			"read_at": bson.M{"$ifNull": bson.A{"$read_at", time.Now().UTC()}},
		}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of userID read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes one of userID's notifications.
func (s *Store) Delete(ctx context.Context, userID string, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadBefore removes notifications read before cutoff.
func (s *Store) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"read": true, "read_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
