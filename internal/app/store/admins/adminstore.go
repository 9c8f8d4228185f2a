// internal/app/store/admins/adminstore.go
package adminstore

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("admin not found")
	ErrDuplicate    = errors.New("an admin with this email already exists")
	ErrInvalidEmail = errors.New("invalid email address")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Create inserts an active admin. passwordHash may be empty for accounts
// that only sign in with Google.
func (s *Store) Create(ctx context.Context, email, name, passwordHash string) (models.Admin, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Admin{}, err
	}
	now := time.Now().UTC()
	a := models.Admin{
		ID:           primitive.NewObjectID(),
		Email:        email,
		EmailCI:      text.Fold(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Status:       models.AdminActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Admin{}, ErrDuplicate
		}
		return models.Admin{}, err
	}
	return a, nil
}

// GetByEmail looks an admin up case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Admin, error) {
	var a models.Admin
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Admin{}, ErrNotFound
	}
	return a, err
}

// EnsureGoogleAdmin returns the admin for a verified Google email, creating
// a password-less active account on first sign-in.
func (s *Store) EnsureGoogleAdmin(ctx context.Context, email, name string) (a models.Admin, created bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return models.Admin{}, false, err
	}
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email_ci": text.Fold(email)},
		bson.M{"$setOnInsert": bson.M{
			"email":      email,
			"name":       strings.TrimSpace(name),
			"status":     models.AdminActive,
			"created_at": now,
			"updated_at": now,
		}},
		options.Update().SetUpsert(true))
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Admin{}, false, err
	}
	a, err = s.GetByEmail(ctx, email)
	return a, res != nil && res.UpsertedCount > 0, err
}

func (s *Store) setByEmail(ctx context.Context, email string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IsActive reports whether email belongs to an active admin. A missing
// account is not an error.
func (s *Store) IsActive(ctx context.Context, email string) (bool, error) {
	filter := bson.M{"email_ci": text.Fold(strings.TrimSpace(email)), "status": models.AdminActive}
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPassword replaces the bcrypt hash.
func (s *Store) SetPassword(ctx context.Context, email, passwordHash string) error {
	return s.setByEmail(ctx, email, bson.M{"password_hash": passwordHash})
}

// SetStatus enables or disables an admin.
func (s *Store) SetStatus(ctx context.Context, email, status string) error {
	if status != models.AdminActive && status != models.AdminDisabled {
		return errors.New("status must be 'active' or 'disabled'")
	}
	return s.setByEmail(ctx, email, bson.M{"status": status})
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login_at": now}})
	return err
}

// List returns all admins sorted by email.
func (s *Store) List(ctx context.Context) ([]models.Admin, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Admin{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
