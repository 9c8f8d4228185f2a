// internal/app/store/datasets/datasetstore.go
package datasetstore

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
)

// MaxLimit bounds List.
const MaxLimit = 200

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNotFound       = errors.New("dataset document not found")
	ErrInvalidTicker  = errors.New("invalid ticker")
	ErrInvalidField   = errors.New("field names must not be empty, start with '$' or contain '.'")
)

// Store reads and writes the allowlisted market-data collections. Documents
// are free-form except for the ticker key.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) coll(name string) (*mongo.Collection, error) {
	c, ok := models.DatasetCollection(name)
	if !ok {
		return nil, ErrUnknownDataset
	}
	return s.db.Collection(c), nil
}

var hideID = bson.M{"_id": 0}

// List returns documents of a dataset sorted by ticker, optionally for one
// ticker only.
func (s *Store) List(ctx context.Context, name, ticker string, limit int) ([]bson.M, error) {
	c, err := s.coll(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	filter := bson.M{}
	if t := models.NormalizeTicker(ticker); t != "" {
		filter["ticker"] = t
	}
	cur, err := c.Find(ctx, filter, options.Find().
		SetProjection(hideID).
		SetSort(bson.D{{Key: "ticker", Value: 1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the document for one ticker.
func (s *Store) Get(ctx context.Context, name, ticker string) (bson.M, error) {
	c, err := s.coll(name)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	err = c.FindOne(ctx, bson.M{"ticker": models.NormalizeTicker(ticker)},
		options.FindOne().SetProjection(hideID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return doc, err
}

// GetMany returns the documents for tickers keyed by ticker. Missing
// tickers are absent from the map.
func (s *Store) GetMany(ctx context.Context, name string, tickers []string) (map[string]bson.M, error) {
	c, err := s.coll(name)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bson.M, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}
	cur, err := c.Find(ctx, bson.M{"ticker": bson.M{"$in": tickers}}, options.Find().SetProjection(hideID))
	if err != nil {
		return nil, err
	}
	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if t, ok := r["ticker"].(string); ok {
			out[t] = r
		}
	}
	return out, nil
}

// Upsert replaces the document for ticker with doc. The ticker and
// updated_at fields are always set by the store.
func (s *Store) Upsert(ctx context.Context, name, ticker string, doc bson.M) (out bson.M, created bool, err error) {
	c, err := s.coll(name)
	if err != nil {
		return nil, false, err
	}
	ticker = models.NormalizeTicker(ticker)
	if !models.ValidTicker(ticker) {
		return nil, false, ErrInvalidTicker
	}
	out = make(bson.M, len(doc)+2)
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
		out[k] = v
	}
	out["ticker"] = ticker
	out["updated_at"] = time.Now().UTC()

	res, err := c.ReplaceOne(ctx, bson.M{"ticker": ticker}, out, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, false, err
	}
	return out, res.UpsertedCount > 0, nil
}

// Delete removes the document for ticker.
func (s *Store) Delete(ctx context.Context, name, ticker string) error {
	c, err := s.coll(name)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, bson.M{"ticker": models.NormalizeTicker(ticker)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
