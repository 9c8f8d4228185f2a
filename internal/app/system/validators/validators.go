// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/fiiportal/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection EnsureAll creates, in creation order.
func Collections() []string {
	out := []string{
		"videos", "reports", "comments", "notifications",
		"subscribers", "goals", "admins", "audit_events",
	}
	for _, n := range models.DatasetNames() {
		out = append(out, models.Datasets[n])
	}
	return out
}

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod support (some DocumentDB versions)
// are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	schemas := map[string]bson.M{
		"videos":        videosSchema(),
		"reports":       reportsSchema(),
		"comments":      commentsSchema(),
		"notifications": notificationsSchema(),
		"subscribers":   subscribersSchema(),
		"goals":         goalsSchema(),
		"admins":        adminsSchema(),
	}

	var problems []string
	for _, coll := range Collections() {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		schema, ok := schemas[coll]
		if !ok {
			continue
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		logger.Debug("validator ensured", zap.String("collection", coll))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func commandCode(err error) (int32, string) {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code, strings.ToLower(ce.Message)
	}
	return 0, strings.ToLower(err.Error())
}

func isNamespaceExistsErr(err error) bool {
	code, msg := commandCode(err)
	return code == 48 || strings.Contains(msg, "already exists") || strings.Contains(msg, "namespace exists")
}

// isUnsupported matches CommandNotFound (59) and NotImplemented (115).
func isUnsupported(err error) bool {
	code, msg := commandCode(err)
	return code == 59 || code == 115 ||
		strings.Contains(msg, "no such command") ||
		strings.Contains(msg, "not implemented") ||
		strings.Contains(msg, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func object(required []string, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func nonEmpty() bson.M { return bson.M{"bsonType": "string", "minLength": 1} }

func enum(vals ...string) bson.M { return bson.M{"bsonType": "string", "enum": vals} }

func contentProps(extra bson.M) bson.M {
	props := bson.M{
		"title":        nonEmpty(),
		"title_ci":     bson.M{"bsonType": "string"},
		"status":       enum(models.StatusDraft, models.StatusPublished),
		"premium":      bson.M{"bsonType": "bool"},
		"tickers":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
		"published_at": bson.M{"bsonType": "date"},
		"created_at":   bson.M{"bsonType": "date"},
		"updated_at":   bson.M{"bsonType": "date"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func videosSchema() bson.M {
	return object([]string{"title", "url", "platform", "embed_id", "status", "created_at"},
		contentProps(bson.M{
			"url":      nonEmpty(),
			"platform": enum(models.PlatformYouTube, models.PlatformVimeo),
			"embed_id": nonEmpty(),
		}))
}

func reportsSchema() bson.M {
	return object([]string{"title", "status", "created_at"},
		contentProps(bson.M{
			"file_size": bson.M{"bsonType": []string{"long", "int"}, "minimum": 0},
		}))
}

func commentsSchema() bson.M {
	return object([]string{"target_type", "target_id", "user_id", "content", "likes", "created_at"}, bson.M{
		"target_type": enum(models.TargetVideo, models.TargetReport),
		"target_id":   bson.M{"bsonType": "objectId"},
		"parent_id":   bson.M{"bsonType": "objectId"},
		"user_id":     nonEmpty(),
		"content":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 2000},
		"likes":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
		"edited":      bson.M{"bsonType": "bool"},
		"created_at":  bson.M{"bsonType": "date"},
	})
}

func notificationsSchema() bson.M {
	return object([]string{"user_id", "type", "title", "read", "created_at"}, bson.M{
		"user_id": nonEmpty(),
		"type": enum(models.NotificationNewVideo, models.NotificationNewReport,
			models.NotificationReply, models.NotificationBroadcast),
		"title":      nonEmpty(),
		"read":       bson.M{"bsonType": "bool"},
		"read_at":    bson.M{"bsonType": "date"},
		"created_at": bson.M{"bsonType": "date"},
	})
}

func subscribersSchema() bson.M {
	return object([]string{"user_id", "email_opt_in"}, bson.M{
		"user_id":      nonEmpty(),
		"email":        bson.M{"bsonType": "string"},
		"email_opt_in": bson.M{"bsonType": "bool"},
	})
}

func goalsSchema() bson.M {
	return object([]string{"title", "metric", "target"}, bson.M{
		"title":  nonEmpty(),
		"metric": enum(models.GoalMetrics...),
		"target": bson.M{"bsonType": []string{"long", "int"}, "minimum": 1},
		"active": bson.M{"bsonType": "bool"},
	})
}

func adminsSchema() bson.M {
	return object([]string{"email", "email_ci", "status"}, bson.M{
		"email":    nonEmpty(),
		"email_ci": nonEmpty(),
		"status":   enum(models.AdminActive, models.AdminDisabled),
	})
}
