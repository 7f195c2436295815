package entity

import "time"

// DefaultAddress is the admin-managed custodial address for an asset that is
// not derived per user (BTC, USDT-TRC20).
type DefaultAddress struct {
	Asset     string    `bson:"_id" json:"asset"`
	Address   string    `bson:"address" json:"address"`
	UpdatedBy string    `bson:"updated_by" json:"updated_by"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
