package repository

import (
	"context"
	"errors"

	"github.com/linlinbupt123-crypto/seed_custody/domain"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// WalletStore persists one encrypted seed record per user.
// CreateWallet reports WALLET_EXISTS for a second wallet of the same user;
// lookups and updates report WALLET_NOT_FOUND.
type WalletStore interface {
	CreateWallet(ctx context.Context, w *entity.Wallet) error
	GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error)
	UpdateWallet(ctx context.Context, w *entity.Wallet) error
}

// AddressStore keeps the per-asset address rows of a user.
type AddressStore interface {
	// ReplaceAddresses drops every row of userID and writes addrs.
	ReplaceAddresses(ctx context.Context, userID string, addrs []*entity.Address) error
	GetAddressesByUserID(ctx context.Context, userID string) ([]*entity.Address, error)
}

// SeedStore writes a wallet record together with its address rows in one
// transaction: either both land or neither does. The rows are stamped with
// the wallet's ID and user before they are written.
type SeedStore interface {
	CreateWalletWithAddresses(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error
	// ReplaceWalletSeed updates w.UserID's wallet and swaps its address rows.
	ReplaceWalletSeed(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error
}

// DefaultAddressStore is the admin-managed pool of shared custodial addresses.
type DefaultAddressStore interface {
	domain.DefaultAddressPool
	SetDefaultAddress(ctx context.Context, d *entity.DefaultAddress) error
	ListDefaultAddresses(ctx context.Context) ([]*entity.DefaultAddress, error)
}

// Store bundles every repository behind one backend.
type Store interface {
	WalletStore
	AddressStore
	SeedStore
	DefaultAddressStore
	Close(ctx context.Context) error
}

func stampAddresses(w *entity.Wallet, addrs []*entity.Address) {
	for _, a := range addrs {
		a.UserID = w.UserID
		a.WalletID = w.ID
	}
}

// txErr keeps coded errors raised inside a transaction and files anything
// else (begin, commit, session) under STORE_ERROR.
func txErr(op string, err error) error {
	var appErr *wrapErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return wrapErrors.WrapWithCode(wrapErrors.CodeStore, op, err)
}
