package entity

import (
	"time"
)

type Address struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	WalletID       string    `bson:"wallet_id" json:"wallet_id"`
	Asset          string    `bson:"asset" json:"asset"` // ETH / USDT-ERC20 / BTC ...
	Address        string    `bson:"address" json:"address"`
	DerivationPath string    `bson:"derivation_path" json:"derivation_path"` // 空: 共享地址
	Index          uint32    `bson:"index" json:"index"`
	Shared         bool      `bson:"shared" json:"shared"` // custodial pool address, same for every user
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
