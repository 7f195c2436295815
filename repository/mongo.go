package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
)

// MongoStore is the production backend.
type MongoStore struct {
	*Wallet
	*AddressRepo
	*DefaultAddressRepo
	repo *db.MongoRepo
}

func NewMongoStore(m *db.MongoRepo) *MongoStore {
	return &MongoStore{
		Wallet:             NewWalletRepo(m),
		AddressRepo:        NewAddressRepo(m),
		DefaultAddressRepo: NewDefaultAddressRepo(m),
		repo:               m,
	}
}

func (s *MongoStore) CreateWalletWithAddresses(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error {
	err := s.repo.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.Wallet.CreateWallet(sc, w); err != nil {
			return err
		}
		stampAddresses(w, addrs)
		return s.AddressRepo.replace(sc, w.UserID, addrs)
	})
	return txErr("create wallet", err)
}

func (s *MongoStore) ReplaceWalletSeed(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error {
	err := s.repo.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.Wallet.UpdateWallet(sc, w); err != nil {
			return err
		}
		stampAddresses(w, addrs)
		return s.AddressRepo.replace(sc, w.UserID, addrs)
	})
	return txErr("replace wallet seed", err)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.repo.Close(ctx)
}

var _ Store = (*MongoStore)(nil)
