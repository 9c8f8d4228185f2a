// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Set is the desired index list for one collection.
type Set struct {
	Collection string
	Models     []mongo.IndexModel
}

/*
EnsureAll reconciles every collection's indexes. It is idempotent and
collects all problems into one error so startup can fail fast with the
full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string
	for _, s := range Desired() {
		if err := ensureIndexSet(ctx, db.Collection(s.Collection), s.Models, logger); err != nil {
			problems = append(problems, s.Collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func contentIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		// public lists: published only, newest first
		idx("idx_"+coll+"_status__id", bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: -1}}),
		idx("idx_"+coll+"_status_category__id", bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}, {Key: "_id", Value: -1}}),
		idx("idx_"+coll+"_tickers_status", bson.D{{Key: "tickers", Value: 1}, {Key: "status", Value: 1}}),
		// admin lists and prefix search
		idx("idx_"+coll+"_titleci__id", bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}),
		idx("idx_"+coll+"_status_published", bson.D{{Key: "status", Value: 1}, {Key: "published_at", Value: -1}}),
	}
}

// Desired lists every index the portal relies on.
func Desired() []Set {
	sets := []Set{
		{Collection: "videos", Models: contentIndexes("videos")},
		{Collection: "reports", Models: contentIndexes("reports")},
		{Collection: "comments", Models: []mongo.IndexModel{
			idx("idx_comments_target_parent_created", bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "parent_id", Value: 1},
				{Key: "created_at", Value: -1},
			}),
			idx("idx_comments_parent", bson.D{{Key: "parent_id", Value: 1}}),
			idx("idx_comments_user", bson.D{{Key: "user_id", Value: 1}}),
		}},
		{Collection: "notifications", Models: []mongo.IndexModel{
			idx("idx_notifications_user_read__id", bson.D{
				{Key: "user_id", Value: 1},
				{Key: "read", Value: 1},
				{Key: "_id", Value: -1},
			}),
			idx("idx_notifications_read_readat", bson.D{{Key: "read", Value: 1}, {Key: "read_at", Value: 1}}),
		}},
		{Collection: "subscribers", Models: []mongo.IndexModel{
			uniq("uniq_subscribers_userid", bson.D{{Key: "user_id", Value: 1}}),
			idx("idx_subscribers_optin", bson.D{{Key: "email_opt_in", Value: 1}}),
		}},
		{Collection: "goals", Models: []mongo.IndexModel{
			idx("idx_goals_active_created", bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: 1}}),
		}},
		{Collection: "admins", Models: []mongo.IndexModel{
			uniq("uniq_admins_emailci", bson.D{{Key: "email_ci", Value: 1}}),
		}},
		{Collection: "audit_events", Models: []mongo.IndexModel{
			idx("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
			idx("idx_audit_category_type_timestamp", bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			}),
			idx("idx_audit_actor_timestamp", bson.D{{Key: "actor_email", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
	}
	for _, name := range models.DatasetNames() {
		coll := models.Datasets[name]
		sets = append(sets, Set{Collection: coll, Models: []mongo.IndexModel{
			uniq("uniq_"+coll+"_ticker", bson.D{{Key: "ticker", Value: 1}}),
		}})
	}
	return sets
}

/* -------------------------------------------------------------------------- */
/* Reconciling one collection                                                 */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			continue
		}
		out[keySig(ix.Key)] = ix
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes and recreates ones whose uniqueness
// changed. An existing index with the same keys under another name is reused.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, want []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that doesn't exist yet lists as NamespaceNotFound on
		// some servers; treat it as empty.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range want {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))
		unique := isUnique(m.Options.Unique)
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == unique {
				logger.Debug("index ok",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop for recreate: %v", name, err))
				continue
			}
			logger.Info("dropped index with different options",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on (%s), duplicates present", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		logger.Info("index created",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}
