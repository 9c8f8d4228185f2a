// internal/app/store/goals/goalstore.go
package goalstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound = errors.New("goal not found")
	ErrInvalid  = errors.New("invalid goal")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

// Store keeps goals and computes their current values from the other
// collections of the same database.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("goals")}
}

// Update carries the fields of a PUT. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Metric      *string
	Target      *int64
	Active      *bool
}

func validate(title, metric string, target int64) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title is required")
	}
	if !models.IsValidMetric(metric) {
		return invalid("metric must be one of " + strings.Join(models.GoalMetrics, ", "))
	}
	if target <= 0 {
		return invalid("target must be greater than zero")
	}
	return nil
}

// Create validates and inserts g.
func (s *Store) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	if err := validate(g.Title, g.Metric, g.Target); err != nil {
		return models.Goal{}, err
	}
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.Description = strings.TrimSpace(g.Description)
	g.Current = 0
	g.CalculatedAt = nil
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// Update applies u and returns the stored goal.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Goal, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Goal{}, err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		cur.Title = strings.TrimSpace(*u.Title)
		set["title"] = cur.Title
	}
	if u.Description != nil {
		set["description"] = strings.TrimSpace(*u.Description)
	}
	if u.Metric != nil {
		cur.Metric = *u.Metric
		set["metric"] = cur.Metric
	}
	if u.Target != nil {
		cur.Target = *u.Target
		set["target"] = cur.Target
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}
	if err := validate(cur.Title, cur.Metric, cur.Target); err != nil {
		return models.Goal{}, err
	}

	var out models.Goal
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Goal{}, ErrNotFound
	}
	return out, err
}

// GetByID returns one goal.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Goal, error) {
	var g models.Goal
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Goal{}, ErrNotFound
		}
		return models.Goal{}, err
	}
	return g, nil
}

// List returns goals oldest first, optionally active ones only.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Goal, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Goal{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a goal.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Compute returns the current value of a metric.
func (s *Store) Compute(ctx context.Context, metric string) (int64, error) {
	published := bson.M{"status": models.StatusPublished}
	switch metric {
	case models.MetricSubscribers:
		return s.db.Collection("subscribers").CountDocuments(ctx, bson.M{})
	case models.MetricComments:
		return s.db.Collection("comments").CountDocuments(ctx, bson.M{})
	case models.MetricVideos:
		return s.db.Collection("videos").CountDocuments(ctx, published)
	case models.MetricReports:
		return s.db.Collection("reports").CountDocuments(ctx, published)
	case models.MetricLikes:
		return s.sumLikes(ctx)
	}
	return 0, invalid("unknown metric " + metric)
}

func (s *Store) sumLikes(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}}},
		}}},
	}
	cur, err := s.db.Collection("comments").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// Recalculate recomputes Current for goals, querying each distinct metric
// once and concurrently, and persists the results. The updated goals are
// returned in input order.
func (s *Store) Recalculate(ctx context.Context, goals []models.Goal) ([]models.Goal, error) {
	if len(goals) == 0 {
		return goals, nil
	}
	values := make(map[string]int64, len(models.GoalMetrics))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	seen := map[string]bool{}
	for _, goal := range goals {
		metric := goal.Metric
		if seen[metric] {
			continue
		}
		seen[metric] = true
		g.Go(func() error {
			v, err := s.Compute(gctx, metric)
			if err != nil {
				return fmt.Errorf("compute %s: %w", metric, err)
			}
			mu.Lock()
			values[metric] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(goals))
	out := make([]models.Goal, len(goals))
	for i, goal := range goals {
		goal.Current = values[goal.Metric]
		goal.CalculatedAt = &now
		out[i] = goal
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": goal.ID}).
			SetUpdate(bson.M{"$set": bson.M{"current": goal.Current, "calculated_at": now}}))
	}
	if _, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return nil, err
	}
	return out, nil
}

// RecalculateActive recomputes every active goal.
func (s *Store) RecalculateActive(ctx context.Context) ([]models.Goal, error) {
	goals, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	return s.Recalculate(ctx, goals)
}
