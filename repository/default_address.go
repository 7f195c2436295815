package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/domain"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// DefaultAddressRepo 管理员维护的共享地址, 以 asset 为 _id
type DefaultAddressRepo struct {
	col *mongo.Collection
}

func NewDefaultAddressRepo(m *db.MongoRepo) *DefaultAddressRepo {
	return &DefaultAddressRepo{col: m.DefaultAddrColl}
}

func (r *DefaultAddressRepo) DefaultAddress(ctx context.Context, asset domain.Asset) (string, error) {
	var d entity.DefaultAddress
	err := r.col.FindOne(ctx, bson.M{"_id": string(asset)}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", wrapErrors.New(wrapErrors.CodeDefaultAddressMissing, "default address "+string(asset))
	}
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeStore, "default address", err)
	}
	return d.Address, nil
}

func (r *DefaultAddressRepo) SetDefaultAddress(ctx context.Context, d *entity.DefaultAddress) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": d.Asset}, d, options.Replace().SetUpsert(true))
	return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "set default address", err)
}

func (r *DefaultAddressRepo) ListDefaultAddresses(ctx context.Context) ([]*entity.DefaultAddress, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "list default addresses", err)
	}
	defer cur.Close(ctx)

	var out []*entity.DefaultAddress
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "list default addresses", err)
	}
	return out, nil
}
