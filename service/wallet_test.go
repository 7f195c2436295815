package service

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/linlinbupt123-crypto/seed_custody/domain"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
	"github.com/linlinbupt123-crypto/seed_custody/ratelimit"
	"github.com/linlinbupt123-crypto/seed_custody/repository"
)

const (
	newsMnemonic = "news call solid spoil nature orbit nephew soda citizen pitch unveil quick"
	newsAddress  = "0xbc8a9f837e06709f2b5b005139bdf1ab8f4b22e9"

	btcAddress  = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	tronAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

type fixture struct {
	svc   *WalletService
	store *repository.SQLiteStore
	path  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custody.db")
	store, err := repository.OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	vault := domain.NewSeedVault(domain.WithIterations(1_000))
	base := []Option{WithLimiter(ratelimit.New(ratelimit.Config{Interval: time.Hour, Burst: 3, TTL: time.Hour}))}
	return &fixture{
		svc:   NewWalletService(store, vault, append(base, opts...)...),
		store: store,
		path:  path,
	}
}

// failAddressWrites makes every insert into addresses abort until the
// returned func is called.
func (f *fixture) failAddressWrites(t *testing.T) (restore func()) {
	t.Helper()
	conn, err := sql.Open("sqlite", f.path)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TRIGGER fail_address_insert BEFORE INSERT ON addresses
BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)
	return func() {
		_, err := conn.Exec(`DROP TRIGGER fail_address_insert`)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}
}

func assertCode(t *testing.T, want wrapErrors.Code, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, wrapErrors.CodeOf(err), "err: %v", err)
}

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.CreateWallet(ctx, "alice", "Alice@Example.com ", "pw-1")
	require.NoError(t, err)
	require.True(t, domain.ValidateMnemonic(created.Mnemonic))

	derived, err := domain.DeriveEthereumAddress(created.Mnemonic, 0)
	require.NoError(t, err)
	assert.Equal(t, derived.Address, created.Wallet.EVMAddress)
	assert.Equal(t, "m/44'/60'/0'/0/0", created.Wallet.DerivationPath)
	assert.Equal(t, "alice@example.com", created.Wallet.Email)
	assert.Equal(t, string(domain.FormatSealedV3), created.Wallet.SeedFormat)
	assert.NotContains(t, created.Wallet.EncryptedSeed, created.Mnemonic)

	// no pool configured: only the three EVM assets
	require.Len(t, created.Addresses, 3)
	for _, a := range created.Addresses {
		assert.Equal(t, derived.Address, a.Address, a.Asset)
		assert.False(t, a.Shared)
	}

	stored, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	plain, err := domain.NewSeedVault().Decrypt(stored.EncryptedSeed, "alice@example.com", "pw-1")
	require.NoError(t, err)
	assert.Equal(t, created.Mnemonic, plain)
}

func TestCreateWalletTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateWallet(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.CreateWallet(ctx, "alice", "alice@example.com", "pw")
	assertCode(t, wrapErrors.CodeWalletExists, err)
	_, err = f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	assertCode(t, wrapErrors.CodeWalletExists, err)
}

func TestCreateWalletRequiresFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateWallet(ctx, "", "alice@example.com", "pw")
	assertCode(t, wrapErrors.CodeInvalidInput, err)
	_, err = f.svc.CreateWallet(ctx, "alice", " ", "pw")
	assertCode(t, wrapErrors.CodeInvalidInput, err)
	_, err = f.svc.CreateWallet(ctx, "alice", "alice@example.com", "")
	assertCode(t, wrapErrors.CodeInvalidInput, err)
}

func TestCreateWalletEntropyFailure(t *testing.T) {
	f := newFixture(t, WithGenerator(domain.NewMnemonicGenerator(bytes.NewReader([]byte{1, 2, 3}))))
	_, err := f.svc.CreateWallet(context.Background(), "alice", "alice@example.com", "pw")
	assertCode(t, wrapErrors.CodeEntropy, err)

	_, err = f.store.GetWalletByUserID(context.Background(), "alice")
	assertCode(t, wrapErrors.CodeWalletNotFound, err)
}

func TestImportWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", "  NEWS call solid spoil nature orbit nephew soda citizen pitch unveil quick ")
	require.NoError(t, err)
	assert.Empty(t, created.Mnemonic)
	assert.Equal(t, newsAddress, created.Wallet.EVMAddress)

	got, err := f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)
}

func TestImportWalletRejectsInvalidMnemonic(t *testing.T) {
	f := newFixture(t)
	words := strings.Fields(newsMnemonic)
	words[11] = "abandon"

	_, err := f.svc.ImportWallet(context.Background(), "alice", "alice@example.com", "pw", strings.Join(words, " "))
	assertCode(t, wrapErrors.CodeInvalidMnemonic, err)
	assert.NotContains(t, err.Error(), "abandon")
}

func TestRecoverSeedWrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	_, err = f.svc.RecoverSeed(ctx, "alice", "wrong")
	assertCode(t, wrapErrors.CodeDecryption, err)
	assert.True(t, errors.Is(err, wrapErrors.ErrDecryption))

	_, err = f.svc.RecoverSeed(ctx, "nobody", "pw")
	assertCode(t, wrapErrors.CodeWalletNotFound, err)
}

func TestRecoverSeedRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.RecoverSeed(ctx, "alice", "wrong")
		assertCode(t, wrapErrors.CodeDecryption, err)
	}
	_, err = f.svc.RecoverSeed(ctx, "alice", "pw")
	assertCode(t, wrapErrors.CodeRateLimited, err)

	// other users keep their own budget
	_, err = f.svc.ImportWallet(ctx, "bob", "bob@example.com", "pw", newsMnemonic)
	require.NoError(t, err)
	_, err = f.svc.RecoverSeed(ctx, "bob", "pw")
	require.NoError(t, err)
}

func TestRecoverSeedSuccessResetsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = f.svc.RecoverSeed(ctx, "alice", "pw")
		require.NoError(t, err, "attempt %d", i)
	}
}

// legacyBlob builds a LegacyV1 blob: base64(iv||AES-256-CBC) keyed by
// PBKDF2(password+email, SHA256(email+"seed-vault:v1")).
func legacyBlob(t *testing.T, mnemonic, email, password string) string {
	t.Helper()
	salt := sha256.Sum256([]byte(email + "seed-vault:v1"))
	key := pbkdf2.Key([]byte(password+email), salt[:], 100_000, 32, sha256.New)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	plain := []byte(mnemonic)
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	plain = append(plain, bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, aes.BlockSize+len(plain))
	_, err = rand.Read(out[:aes.BlockSize])
	require.NoError(t, err)
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(out[aes.BlockSize:], plain)
	return base64.StdEncoding.EncodeToString(out)
}

func TestRecoverSeedUpgradesLegacyBlob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	w, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	w.EncryptedSeed = legacyBlob(t, newsMnemonic, "alice@example.com", "pw")
	w.SeedFormat = string(domain.FormatLegacyV1)
	require.NoError(t, f.store.UpdateWallet(ctx, w))
	require.Equal(t, domain.FormatLegacyV1, domain.DetectFormat(w.EncryptedSeed))

	got, err := f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)

	upgraded, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, string(domain.FormatSealedV3), upgraded.SeedFormat)
	assert.Equal(t, domain.FormatSealedV3, domain.DetectFormat(upgraded.EncryptedSeed))

	got, err = f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)
}

func TestRecoverSeedAddressMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	w, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	w.EVMAddress = "0xc9f089b8831c5f1bb59dfaee80256097d9b0c562"
	require.NoError(t, f.store.UpdateWallet(ctx, w))

	_, err = f.svc.RecoverSeed(ctx, "alice", "pw")
	assertCode(t, wrapErrors.CodeAddressMismatch, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "old", newsMnemonic)
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, "alice", "wrong", "new")
	assertCode(t, wrapErrors.CodeDecryption, err)

	require.NoError(t, f.svc.ChangePassword(ctx, "alice", "old", "new"))

	_, err = f.svc.RecoverSeed(ctx, "alice", "old")
	assertCode(t, wrapErrors.CodeDecryption, err)
	got, err := f.svc.RecoverSeed(ctx, "alice", "new")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)
}

func TestRegenerateWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	regen, err := f.svc.RegenerateWallet(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, newsMnemonic, regen.Mnemonic)
	assert.NotEqual(t, newsAddress, regen.Wallet.EVMAddress)

	addrs, err := f.svc.GetAddresses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, addrs, 3)
	for _, a := range addrs {
		assert.Equal(t, regen.Wallet.EVMAddress, a.Address)
	}

	got, err := f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, regen.Mnemonic, got)

	_, err = f.svc.RegenerateWallet(ctx, "nobody", "pw")
	assertCode(t, wrapErrors.CodeWalletNotFound, err)
}

func TestRegenerateWalletRequiresCurrentPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.RegenerateWallet(ctx, "alice", "guess")
		assertCode(t, wrapErrors.CodeDecryption, err)
	}
	_, err = f.svc.RegenerateWallet(ctx, "alice", "pw")
	assertCode(t, wrapErrors.CodeRateLimited, err)

	stored, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, newsAddress, stored.EVMAddress)
	got, err := f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)
}

func TestRegenerateWalletFailedAddressWriteKeepsOldSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)

	restore := f.failAddressWrites(t)
	_, err = f.svc.RegenerateWallet(ctx, "alice", "pw")
	assertCode(t, wrapErrors.CodeStore, err)
	restore()

	stored, err := f.store.GetWalletByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, newsAddress, stored.EVMAddress)

	rows, err := f.store.GetAddressesByUserID(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, newsAddress, r.Address)
	}

	got, err := f.svc.RecoverSeed(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, newsMnemonic, got)
}

func TestCreateWalletFailedAddressWriteLeavesNoWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	restore := f.failAddressWrites(t)
	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	assertCode(t, wrapErrors.CodeStore, err)
	restore()

	_, err = f.store.GetWalletByUserID(ctx, "alice")
	assertCode(t, wrapErrors.CodeWalletNotFound, err)

	// the failed attempt does not block a retry
	created, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)
	assert.Equal(t, newsAddress, created.Wallet.EVMAddress)
}

func TestResolveAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.NoError(t, err)
	_, err = f.svc.CreateWallet(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)

	for _, sym := range []string{"ETH", "USDT-ERC20", "usdc_erc20"} {
		addr, err := f.svc.ResolveAddress(ctx, "alice", sym)
		require.NoError(t, err, sym)
		assert.Equal(t, newsAddress, addr, sym)
	}

	_, err = f.svc.ResolveAddress(ctx, "alice", "BTC")
	assertCode(t, wrapErrors.CodeDefaultAddressMissing, err)
	_, err = f.svc.ResolveAddress(ctx, "alice", "DOGE")
	assertCode(t, wrapErrors.CodeUnsupportedAsset, err)
	_, err = f.svc.ResolveAddress(ctx, "nobody", "ETH")
	assertCode(t, wrapErrors.CodeWalletNotFound, err)

	_, err = f.svc.SetDefaultAddress(ctx, "BTC", btcAddress, "ops")
	require.NoError(t, err)
	_, err = f.svc.SetDefaultAddress(ctx, "USDT_TRON", tronAddress, "ops")
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		btc, err := f.svc.ResolveAddress(ctx, user, "BTC")
		require.NoError(t, err)
		assert.Equal(t, btcAddress, btc)
		tron, err := f.svc.ResolveAddress(ctx, user, "USDT-TRC20")
		require.NoError(t, err)
		assert.Equal(t, tronAddress, tron)
	}

	addrs, err := f.svc.GetAddresses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, addrs, 5)
	shared := 0
	for _, a := range addrs {
		if a.Shared {
			shared++
			assert.Empty(t, a.DerivationPath)
		}
	}
	assert.Equal(t, 2, shared)
}

func TestSetDefaultAddressValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SetDefaultAddress(ctx, "BTC", "not-an-address", "ops")
	assertCode(t, wrapErrors.CodeInvalidAddress, err)
	_, err = f.svc.SetDefaultAddress(ctx, "USDT-TRC20", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", "ops")
	assertCode(t, wrapErrors.CodeInvalidAddress, err)
	_, err = f.svc.SetDefaultAddress(ctx, "BTC", tronAddress, "ops")
	assertCode(t, wrapErrors.CodeInvalidAddress, err)
	_, err = f.svc.SetDefaultAddress(ctx, "ETH", newsAddress, "ops")
	assertCode(t, wrapErrors.CodeUnsupportedAsset, err)

	list, err := f.svc.ListDefaultAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	d, err := f.svc.SetDefaultAddress(ctx, "btc", " "+btcAddress+" ", "ops")
	require.NoError(t, err)
	assert.Equal(t, "BTC", d.Asset)
	assert.Equal(t, btcAddress, d.Address)

	list, err = f.svc.ListDefaultAddresses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ops", list[0].UpdatedBy)
}

func TestKDFBoundHonoursContext(t *testing.T) {
	f := newFixture(t, WithMaxConcurrent(1))
	// hold the only slot
	require.NoError(t, f.svc.sem.Acquire(context.Background(), 1))
	defer f.svc.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.svc.ImportWallet(ctx, "alice", "alice@example.com", "pw", newsMnemonic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestValidateMnemonic(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.svc.ValidateMnemonic(newsMnemonic))
	assert.False(t, f.svc.ValidateMnemonic("news call solid"))
}
