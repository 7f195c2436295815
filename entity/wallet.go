package entity

import (
	"time"
)

// Wallet is the encrypted seed record, one per user. The mnemonic is only
// ever stored sealed by the seed vault.
type Wallet struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	Email          string    `bson:"email" json:"email"`             // vault binding, lower-cased
	EncryptedSeed  string    `bson:"encrypted_seed" json:"-"`        // vault blob
	SeedFormat     string    `bson:"seed_format" json:"seed_format"` // legacy-v1 / salted-v2 / sealed-v3
	EVMAddress     string    `bson:"evm_address" json:"evm_address"` // 主地址 m/44'/60'/0'/0/0
	DerivationPath string    `bson:"derivation_path" json:"derivation_path"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}
