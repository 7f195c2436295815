package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

type AddressRepo struct {
	col  *mongo.Collection
	repo *db.MongoRepo
}

func NewAddressRepo(m *db.MongoRepo) *AddressRepo {
	return &AddressRepo{col: m.AddrColl, repo: m}
}

// ReplaceAddresses swaps the rows of userID inside one transaction.
func (r *AddressRepo) ReplaceAddresses(ctx context.Context, userID string, addrs []*entity.Address) error {
	err := r.repo.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		return r.replace(sc, userID, addrs)
	})
	return txErr("replace addresses", err)
}

// replace must run inside a session context to be atomic.
func (r *AddressRepo) replace(ctx context.Context, userID string, addrs []*entity.Address) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "replace addresses", err)
	}
	if len(addrs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(addrs))
	for _, a := range addrs {
		if a.ID == "" {
			a.ID = primitive.NewObjectID().Hex()
		}
		docs = append(docs, a)
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "replace addresses", err)
	}
	return nil
}

func (r *AddressRepo) GetAddressesByUserID(ctx context.Context, userID string) ([]*entity.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "asset", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get addresses", err)
	}
	defer cur.Close(ctx)

	var out []*entity.Address
	for cur.Next(ctx) {
		var a entity.Address
		if err := cur.Decode(&a); err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "decode address", err)
		}
		out = append(out, &a)
	}
	return out, cur.Err()
}
