/*
user_id → 唯一索引
EncryptedSeed / SeedFormat / EVMAddress / CreatedAt / UpdatedAt
*/
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

type Wallet struct {
	col *mongo.Collection
}

func NewWalletRepo(m *db.MongoRepo) *Wallet {
	return &Wallet{col: m.WalletColl}
}

// CreateWallet inserts w and fills in its ID.
func (r *Wallet) CreateWallet(ctx context.Context, w *entity.Wallet) error {
	if w.ID == "" {
		w.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.col.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return wrapErrors.New(wrapErrors.CodeWalletExists, "create wallet "+w.UserID)
		}
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "create wallet", err)
	}
	return nil
}

func (r *Wallet) GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var w entity.Wallet
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapErrors.New(wrapErrors.CodeWalletNotFound, "get wallet "+userID)
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get wallet", err)
	}
	return &w, nil
}

// UpdateWallet rewrites the seed blob and primary address of w.UserID.
func (r *Wallet) UpdateWallet(ctx context.Context, w *entity.Wallet) error {
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = time.Now().UTC()
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"user_id": w.UserID}, bson.M{"$set": bson.M{
		"email":           w.Email,
		"encrypted_seed":  w.EncryptedSeed,
		"seed_format":     w.SeedFormat,
		"evm_address":     w.EVMAddress,
		"derivation_path": w.DerivationPath,
		"updated_at":      w.UpdatedAt,
	}})
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "update wallet", err)
	}
	if res.MatchedCount == 0 {
		return wrapErrors.New(wrapErrors.CodeWalletNotFound, "update wallet "+w.UserID)
	}
	return nil
}
