package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/linlinbupt123-crypto/seed_custody/db"
	"github.com/linlinbupt123-crypto/seed_custody/domain"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// SQLiteStore keeps every repository in one embedded database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens/creates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "open sqlite", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Close(context.Context) error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// withTx commits only if fn returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return txErr(op, err)
	}
	return txErr(op, tx.Commit())
}

func (s *SQLiteStore) CreateWallet(ctx context.Context, w *entity.Wallet) error {
	return insertWallet(ctx, s.db, w)
}

func (s *SQLiteStore) GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var (
		w                entity.Wallet
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, user_id, email, encrypted_seed, seed_format, evm_address, derivation_path, created_at, updated_at
FROM wallets WHERE user_id = ?`, userID).Scan(
		&w.ID, &w.UserID, &w.Email, &w.EncryptedSeed, &w.SeedFormat, &w.EVMAddress, &w.DerivationPath,
		&created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErrors.New(wrapErrors.CodeWalletNotFound, "get wallet "+userID)
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get wallet", err)
	}
	w.CreatedAt = time.Unix(0, created).UTC()
	w.UpdatedAt = time.Unix(0, updated).UTC()
	return &w, nil
}

func (s *SQLiteStore) UpdateWallet(ctx context.Context, w *entity.Wallet) error {
	return updateWallet(ctx, s.db, w)
}

func (s *SQLiteStore) ReplaceAddresses(ctx context.Context, userID string, addrs []*entity.Address) error {
	return s.withTx(ctx, "replace addresses", func(tx *sql.Tx) error {
		return replaceAddresses(ctx, tx, userID, addrs)
	})
}

func (s *SQLiteStore) CreateWalletWithAddresses(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error {
	return s.withTx(ctx, "create wallet", func(tx *sql.Tx) error {
		if err := insertWallet(ctx, tx, w); err != nil {
			return err
		}
		stampAddresses(w, addrs)
		return replaceAddresses(ctx, tx, w.UserID, addrs)
	})
}

func (s *SQLiteStore) ReplaceWalletSeed(ctx context.Context, w *entity.Wallet, addrs []*entity.Address) error {
	return s.withTx(ctx, "replace wallet seed", func(tx *sql.Tx) error {
		if err := updateWallet(ctx, tx, w); err != nil {
			return err
		}
		stampAddresses(w, addrs)
		return replaceAddresses(ctx, tx, w.UserID, addrs)
	})
}

func insertWallet(ctx context.Context, q execer, w *entity.Wallet) error {
	if w.ID == "" {
		w.ID = ulid.Make().String()
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO wallets(id, user_id, email, encrypted_seed, seed_format, evm_address, derivation_path, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?)`,
		w.ID, w.UserID, w.Email, w.EncryptedSeed, w.SeedFormat, w.EVMAddress, w.DerivationPath,
		w.CreatedAt.UnixNano(), w.UpdatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return wrapErrors.New(wrapErrors.CodeWalletExists, "create wallet "+w.UserID)
	}
	return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "create wallet", err)
}

func updateWallet(ctx context.Context, q execer, w *entity.Wallet) error {
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = time.Now().UTC()
	}
	res, err := q.ExecContext(ctx, `
UPDATE wallets SET email = ?, encrypted_seed = ?, seed_format = ?, evm_address = ?, derivation_path = ?, updated_at = ?
WHERE user_id = ?`,
		w.Email, w.EncryptedSeed, w.SeedFormat, w.EVMAddress, w.DerivationPath, w.UpdatedAt.UnixNano(), w.UserID,
	)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "update wallet", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrapErrors.New(wrapErrors.CodeWalletNotFound, "update wallet "+w.UserID)
	}
	return nil
}

func replaceAddresses(ctx context.Context, q execer, userID string, addrs []*entity.Address) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM addresses WHERE user_id = ?`, userID); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "replace addresses", err)
	}

	stmt, err := q.PrepareContext(ctx, `
INSERT INTO addresses(id, user_id, wallet_id, asset, address, derivation_path, idx, shared, created_at)
VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "replace addresses", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, a := range addrs {
		if a.ID == "" {
			a.ID = ulid.Make().String()
		}
		shared := 0
		if a.Shared {
			shared = 1
		}
		if _, err := stmt.ExecContext(ctx, a.ID, userID, a.WalletID, a.Asset, a.Address, a.DerivationPath,
			a.Index, shared, a.CreatedAt.UnixNano()); err != nil {
			return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "replace addresses", err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetAddressesByUserID(ctx context.Context, userID string) ([]*entity.Address, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, wallet_id, asset, address, derivation_path, idx, shared, created_at
FROM addresses WHERE user_id = ? ORDER BY asset ASC`, userID)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get addresses", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*entity.Address
	for rows.Next() {
		var (
			a       entity.Address
			shared  int
			created int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.WalletID, &a.Asset, &a.Address, &a.DerivationPath,
			&a.Index, &shared, &created); err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get addresses", err)
		}
		a.Shared = shared == 1
		a.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &a)
	}
	return out, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "get addresses", rows.Err())
}

func (s *SQLiteStore) DefaultAddress(ctx context.Context, asset domain.Asset) (string, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `SELECT address FROM default_addresses WHERE asset = ?`, string(asset)).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", wrapErrors.New(wrapErrors.CodeDefaultAddressMissing, "default address "+string(asset))
	}
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeStore, "default address", err)
	}
	return addr, nil
}

func (s *SQLiteStore) SetDefaultAddress(ctx context.Context, d *entity.DefaultAddress) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO default_addresses(asset, address, updated_by, updated_at) VALUES(?,?,?,?)
ON CONFLICT(asset) DO UPDATE SET address = excluded.address, updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
		d.Asset, d.Address, d.UpdatedBy, d.UpdatedAt.UnixNano(),
	)
	return wrapErrors.WrapWithCode(wrapErrors.CodeStore, "set default address", err)
}

func (s *SQLiteStore) ListDefaultAddresses(ctx context.Context) ([]*entity.DefaultAddress, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT asset, address, updated_by, updated_at FROM default_addresses ORDER BY asset ASC`)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "list default addresses", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*entity.DefaultAddress
	for rows.Next() {
		var (
			d       entity.DefaultAddress
			updated int64
		)
		if err := rows.Scan(&d.Asset, &d.Address, &d.UpdatedBy, &updated); err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "list default addresses", err)
		}
		d.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, &d)
	}
	return out, wrapErrors.WrapWithCode(wrapErrors.CodeStore, "list default addresses", rows.Err())
}

var _ Store = (*SQLiteStore)(nil)
