package db

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens/creates a SQLite database and runs migrations.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  encrypted_seed TEXT NOT NULL,
  seed_format TEXT NOT NULL,
  evm_address TEXT NOT NULL,
  derivation_path TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  wallet_id TEXT NOT NULL,
  asset TEXT NOT NULL,
  address TEXT NOT NULL,
  derivation_path TEXT NOT NULL,
  idx INTEGER NOT NULL,
  shared INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(user_id, asset)
);

CREATE INDEX IF NOT EXISTS idx_addresses_address ON addresses(address);

CREATE TABLE IF NOT EXISTS default_addresses (
  asset TEXT PRIMARY KEY,
  address TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	return err
}
