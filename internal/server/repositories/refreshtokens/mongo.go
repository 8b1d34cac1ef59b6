package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/server/models"
)

const CollectionName = "refresh_tokens"

type tokenDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Token      string    `bson:"token"`
	ExpiryDate time.Time `bson:"expiry_date"`
	Revoked    bool      `bson:"revoked"`
}

func toDocument(t *models.RefreshToken) tokenDocument {
	return tokenDocument{
		ID:         t.ID,
		UserID:     t.UserID,
		Token:      t.Token,
		ExpiryDate: t.ExpiryDate.UTC(),
		Revoked:    t.Revoked,
	}
}

func (d tokenDocument) toModel() *models.RefreshToken {
	return &models.RefreshToken{
		ID:         d.ID,
		UserID:     d.UserID,
		Token:      d.Token,
		ExpiryDate: d.ExpiryDate.UTC(),
		Revoked:    d.Revoked,
	}
}

// MongoRepository stores refresh tokens as documents keyed by ID.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique token index and the lookup indexes used
// by the user and expiry deletes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("refresh_tokens_token_key"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("refresh_tokens_user_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "expiry_date", Value: 1}},
			Options: options.Index().SetName("refresh_tokens_expiry_date_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("create refresh token indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if _, err := r.col.InsertOne(ctx, toDocument(token)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var doc tokenDocument
	if err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) Update(ctx context.Context, token *models.RefreshToken) error {
	update := bson.M{"$max": bson.M{"revoked": token.Revoked}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": token.ID}, update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo error: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) DeleteAllExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expiry_date": bson.M{"$lte": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("mongo error: %w", err)
	}
	return res.DeletedCount, nil
}
