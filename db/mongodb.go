package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WalletCollection         = "wallets"
	AddressCollection        = "addresses"
	DefaultAddressCollection = "default_addresses"
)

type MongoRepo struct {
	Client          *mongo.Client
	DB              *mongo.Database
	WalletColl      *mongo.Collection
	AddrColl        *mongo.Collection
	DefaultAddrColl *mongo.Collection
}

func NewMongoRepo(ctx context.Context, uri, dbName string) (*MongoRepo, error) {
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	// ping
	ctx2, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx2, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoRepo{
		Client:          client,
		DB:              db,
		WalletColl:      db.Collection(WalletCollection),
		AddrColl:        db.Collection(AddressCollection),
		DefaultAddrColl: db.Collection(DefaultAddressCollection),
	}, nil
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// WithTransaction runs fn in a multi-document transaction and commits if it
// returns nil. fn may run more than once on transient errors. Needs a replica
// set or sharded cluster; a standalone mongod rejects the transaction.
func (m *MongoRepo) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
