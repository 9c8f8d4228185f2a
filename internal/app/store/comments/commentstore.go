// internal/app/store/comments/commentstore.go
package commentstore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/fiiportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxContentLen is the longest comment accepted, in characters, after
// markup is stripped.
const MaxContentLen = 2000

var (
	ErrNotFound       = errors.New("comment not found")
	ErrParentNotFound = errors.New("parent comment not found")
	ErrNotOwner       = errors.New("comment belongs to another member")
	ErrInvalid        = errors.New("invalid comment")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("comments")}
}

// Thread is a root comment with its replies, oldest reply first.
type Thread struct {
	Root    models.Comment
	Replies []models.Comment
}

// CleanContent strips markup and checks the length bounds.
func CleanContent(raw string) (string, error) {
	content := htmlsanitize.PlainText(raw)
	if content == "" {
		return "", invalid("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLen {
		return "", invalid(fmt.Sprintf("content must be at most %d characters", MaxContentLen))
	}
	return content, nil
}

// Create inserts c. The target must have been checked by the caller; a
// parent must be a root comment on the same target.
func (s *Store) Create(ctx context.Context, c models.Comment) (models.Comment, error) {
	if !models.IsValidTarget(c.TargetType) {
		return models.Comment{}, invalid("target_type must be 'video' or 'report'")
	}
	if c.TargetID.IsZero() {
		return models.Comment{}, invalid("target_id is required")
	}
	if c.UserID == "" {
		return models.Comment{}, invalid("user_id is required")
	}
	content, err := CleanContent(c.Content)
	if err != nil {
		return models.Comment{}, err
	}

	if c.ParentID != nil {
		parent, err := s.GetByID(ctx, *c.ParentID)
		if errors.Is(err, ErrNotFound) {
			return models.Comment{}, ErrParentNotFound
		}
		if err != nil {
			return models.Comment{}, err
		}
		if parent.ParentID != nil || parent.TargetType != c.TargetType || parent.TargetID != c.TargetID {
			return models.Comment{}, invalid("replies must answer a top-level comment on the same item")
		}
	}

	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Content = content
	c.Likes = []string{}
	c.Edited = false
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// GetByID returns one comment.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Comment, error) {
	var c models.Comment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, err
	}
	return c, nil
}

// ListThreads returns a newest-first page of root comments on a target with
// their replies embedded.
func (s *Store) ListThreads(ctx context.Context, targetType string, targetID primitive.ObjectID, before *primitive.ObjectID, limit int) (paging.Page[Thread], error) {
	filter := bson.M{
		"target_type": targetType,
		"target_id":   targetID,
		"parent_id":   bson.M{"$exists": false},
	}
	var roots []models.Comment
	cur, err := s.c.Find(ctx, filter, paging.NewestFirst(filter, before, limit))
	if err != nil {
		return paging.Page[Thread]{}, err
	}
	if err := cur.All(ctx, &roots); err != nil {
		return paging.Page[Thread]{}, err
	}
	rootPage := paging.BuildPage(roots, limit, func(c models.Comment) primitive.ObjectID { return c.ID })

	out := paging.Page[Thread]{
		Items:      make([]Thread, 0, len(rootPage.Items)),
		NextBefore: rootPage.NextBefore,
		HasMore:    rootPage.HasMore,
	}
	if len(rootPage.Items) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, len(rootPage.Items))
	for i, r := range rootPage.Items {
		ids[i] = r.ID
	}
	var replies []models.Comment
	cur, err = s.c.Find(ctx, bson.M{"parent_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return paging.Page[Thread]{}, err
	}
	if err := cur.All(ctx, &replies); err != nil {
		return paging.Page[Thread]{}, err
	}
	byParent := make(map[primitive.ObjectID][]models.Comment, len(ids))
	for _, r := range replies {
		byParent[*r.ParentID] = append(byParent[*r.ParentID], r)
	}
	for _, root := range rootPage.Items {
		rs := byParent[root.ID]
		if rs == nil {
			rs = []models.Comment{}
		}
		out.Items = append(out.Items, Thread{Root: root, Replies: rs})
	}
	return out, nil
}

// ListRecent returns the newest comments across all targets.
func (s *Store) ListRecent(ctx context.Context, before *primitive.ObjectID, limit int) (paging.Page[models.Comment], error) {
	filter := bson.M{}
	var rows []models.Comment
	cur, err := s.c.Find(ctx, filter, paging.NewestFirst(filter, before, limit))
	if err != nil {
		return paging.Page[models.Comment]{}, err
	}
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Comment]{}, err
	}
	return paging.BuildPage(rows, limit, func(c models.Comment) primitive.ObjectID { return c.ID }), nil
}

// UpdateContent replaces the content of userID's comment and marks it edited.
func (s *Store) UpdateContent(ctx context.Context, id primitive.ObjectID, userID, raw string) (models.Comment, error) {
	content, err := CleanContent(raw)
	if err != nil {
		return models.Comment{}, err
	}
	var c models.Comment
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"content": content, "edited": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Comment{}, err
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return models.Comment{}, err
	}
	return models.Comment{}, ErrNotOwner
}

// ToggleLike adds userID to the comment's likes or removes it, in a single
// atomic update. It returns the new state and like count.
func (s *Store) ToggleLike(ctx context.Context, id primitive.ObjectID, userID string) (liked bool, count int, err error) {
	likes := bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}
	uid := bson.M{"$literal": userID}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"likes": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{uid, likes}},
				bson.M{"$filter": bson.M{
					"input": likes,
					"cond":  bson.M{"$ne": bson.A{"$$this", uid}},
				}},
				bson.M{"$concatArrays": bson.A{likes, bson.A{uid}}},
			}},
		}}},
	}

	var c models.Comment
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}
	return c.LikedBy(userID), len(c.Likes), nil
}

// Delete removes a comment and its replies. It returns the number of
// documents removed, or ErrNotFound when the comment does not exist.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount == 0 {
		return 0, ErrNotFound
	}
	replies, err := s.c.DeleteMany(ctx, bson.M{"parent_id": id})
	if err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount + replies.DeletedCount, nil
}

// DeleteForTarget removes every comment on a target.
func (s *Store) DeleteForTarget(ctx context.Context, targetType string, targetID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"target_type": targetType, "target_id": targetID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
