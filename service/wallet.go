package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/linlinbupt123-crypto/seed_custody/chain"
	"github.com/linlinbupt123-crypto/seed_custody/domain"
	"github.com/linlinbupt123-crypto/seed_custody/entity"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
	"github.com/linlinbupt123-crypto/seed_custody/ratelimit"
	"github.com/linlinbupt123-crypto/seed_custody/repository"
	"github.com/linlinbupt123-crypto/seed_custody/utils"
)

const (
	actionRecover    = "recover"
	actionPassword   = "password"
	actionRegenerate = "regenerate"

	defaultMaxConcurrent = 4
)

type WalletService struct {
	store      repository.Store
	vault      *domain.SeedVault
	hd         *domain.HDWallet
	generator  *domain.MnemonicGenerator
	validators chain.Validators
	limiter    *ratelimit.Store
	sem        *semaphore.Weighted
	log        log.Logger
	now        func() time.Time
}

type Option func(*WalletService)

func WithLimiter(l *ratelimit.Store) Option {
	return func(s *WalletService) { s.limiter = l }
}

func WithValidators(v chain.Validators) Option {
	return func(s *WalletService) { s.validators = v }
}

func WithGenerator(g *domain.MnemonicGenerator) Option {
	return func(s *WalletService) { s.generator = g }
}

// WithMaxConcurrent bounds how many vault operations (each one a full KDF
// run) may execute at once.
func WithMaxConcurrent(n int) Option {
	return func(s *WalletService) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func NewWalletService(store repository.Store, vault *domain.SeedVault, opts ...Option) *WalletService {
	s := &WalletService{
		store:      store,
		vault:      vault,
		hd:         domain.NewHDWallet(),
		generator:  domain.NewMnemonicGenerator(nil),
		validators: chain.NewValidators(true),
		limiter:    ratelimit.New(ratelimit.DefaultConfig()),
		sem:        semaphore.NewWeighted(defaultMaxConcurrent),
		log:        log.New("module", "wallet"),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatedWallet is returned once, at creation. Mnemonic is never persisted
// in plaintext and is not retrievable later except through RecoverSeed.
type CreatedWallet struct {
	Wallet    *entity.Wallet    `json:"wallet"`
	Addresses []*entity.Address `json:"addresses"`
	Mnemonic  string            `json:"mnemonic"`
}

// CreateWallet 生成助记词 + 加密保存 + 派生主地址
func (s *WalletService) CreateWallet(ctx context.Context, userID, email, password string) (*CreatedWallet, error) {
	if err := requireFields("create wallet", userID, email, password); err != nil {
		return nil, err
	}
	if err := s.ensureNoWallet(ctx, userID); err != nil {
		return nil, err
	}

	mnemonic, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}
	created, err := s.storeNewSeed(ctx, userID, email, password, mnemonic, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("Wallet created", "user", userID, "address", created.Wallet.EVMAddress)
	return created, nil
}

// ImportWallet stores a user-supplied mnemonic. The mnemonic must be a valid
// 12-word phrase; it is stored in canonical form.
func (s *WalletService) ImportWallet(ctx context.Context, userID, email, password, mnemonic string) (*CreatedWallet, error) {
	if err := requireFields("import wallet", userID, email, password); err != nil {
		return nil, err
	}
	normalized, err := domain.ParseMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoWallet(ctx, userID); err != nil {
		return nil, err
	}
	created, err := s.storeNewSeed(ctx, userID, email, password, normalized, nil)
	if err != nil {
		return nil, err
	}
	created.Mnemonic = ""
	s.log.Info("Wallet imported", "user", userID, "address", created.Wallet.EVMAddress)
	return created, nil
}

// RegenerateWallet replaces the seed of an existing wallet with a fresh one
// and rewrites every derived address row. password must open the current
// seed and also seals the new one. The old seed is unrecoverable afterwards.
func (s *WalletService) RegenerateWallet(ctx context.Context, userID, password string) (*CreatedWallet, error) {
	if err := requireFields("regenerate wallet", userID, password); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(userID, actionRegenerate) {
		s.log.Warn("Wallet regeneration throttled", "user", userID)
		return nil, wrapErrors.New(wrapErrors.CodeRateLimited, "regenerate wallet")
	}
	existing, err := s.store.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// the caller must prove they own the seed being replaced
	if _, err := s.open(ctx, existing.EncryptedSeed, existing.Email, password); err != nil {
		s.log.Warn("Regenerate rejected", "user", userID)
		return nil, err
	}
	s.limiter.Reset(userID, actionRegenerate)
	mnemonic, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}
	created, err := s.storeNewSeed(ctx, userID, existing.Email, password, mnemonic, existing)
	if err != nil {
		return nil, err
	}
	s.log.Warn("Wallet regenerated", "user", userID, "old", existing.EVMAddress, "new", created.Wallet.EVMAddress)
	return created, nil
}

func (s *WalletService) ensureNoWallet(ctx context.Context, userID string) error {
	_, err := s.store.GetWalletByUserID(ctx, userID)
	switch {
	case err == nil:
		return wrapErrors.New(wrapErrors.CodeWalletExists, "create wallet "+userID)
	case errors.Is(err, wrapErrors.ErrWalletNotFound):
		return nil
	default:
		return err
	}
}

// storeNewSeed derives index 0, seals mnemonic and persists the wallet. When
// existing is set the record is updated in place instead of inserted.
func (s *WalletService) storeNewSeed(ctx context.Context, userID, email, password, mnemonic string, existing *entity.Wallet) (*CreatedWallet, error) {
	derived, err := s.hd.DeriveEthereumAddress(mnemonic, utils.PrimaryIndex)
	if err != nil {
		return nil, err
	}

	blob, err := s.encrypt(ctx, mnemonic, email, password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	w := &entity.Wallet{
		UserID:         userID,
		Email:          strings.ToLower(strings.TrimSpace(email)),
		EncryptedSeed:  blob,
		SeedFormat:     string(domain.FormatSealedV3),
		EVMAddress:     derived.Address,
		DerivationPath: derived.DerivationPath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rows := derivedRows(w, derived, now)
	if existing != nil {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
		err = s.store.ReplaceWalletSeed(ctx, w, rows)
	} else {
		err = s.store.CreateWalletWithAddresses(ctx, w, rows)
	}
	if err != nil {
		if !errors.Is(err, wrapErrors.ErrWalletExists) {
			s.log.Error("Failed to store wallet", "user", userID, "err", err)
		}
		return nil, err
	}

	addrs, err := s.withPooled(ctx, w, rows)
	if err != nil {
		return nil, err
	}
	return &CreatedWallet{Wallet: w, Addresses: addrs, Mnemonic: mnemonic}, nil
}

// derivedRows writes one row per EVM asset, all pointing at the same
// index-0 address.
func derivedRows(w *entity.Wallet, d *domain.DerivedAddress, now time.Time) []*entity.Address {
	var rows []*entity.Address
	for _, a := range domain.SupportedAssets() {
		if !a.IsEVM() {
			continue
		}
		rows = append(rows, &entity.Address{
			UserID:         w.UserID,
			WalletID:       w.ID,
			Asset:          string(a),
			Address:        d.Address,
			DerivationPath: d.DerivationPath,
			Index:          d.Index,
			CreatedAt:      now,
		})
	}
	return rows
}

// withPooled appends the current shared address of every pooled asset that
// has one configured.
func (s *WalletService) withPooled(ctx context.Context, w *entity.Wallet, rows []*entity.Address) ([]*entity.Address, error) {
	out := make([]*entity.Address, 0, len(rows)+2)
	out = append(out, rows...)
	for _, a := range domain.SupportedAssets() {
		if a.IsEVM() {
			continue
		}
		addr, err := s.store.DefaultAddress(ctx, a)
		if errors.Is(err, wrapErrors.ErrDefaultAddressMissing) {
			s.log.Debug("No default address configured", "asset", a)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &entity.Address{
			UserID:   w.UserID,
			WalletID: w.ID,
			Asset:    string(a),
			Address:  addr,
			Shared:   true,
		})
	}
	return out, nil
}

// GetAddresses lists the derived rows of userID plus the live shared
// addresses of pooled assets.
func (s *WalletService) GetAddresses(ctx context.Context, userID string) ([]*entity.Address, error) {
	w, err := s.store.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.GetAddressesByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	derived := rows[:0]
	for _, r := range rows {
		if !r.Shared {
			derived = append(derived, r)
		}
	}
	return s.withPooled(ctx, w, derived)
}

// ResolveAddress returns the deposit address of userID for symbol.
func (s *WalletService) ResolveAddress(ctx context.Context, userID, symbol string) (string, error) {
	if _, err := domain.NormalizeAsset(symbol); err != nil {
		return "", err
	}
	w, err := s.store.GetWalletByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return domain.ResolveAddress(ctx, symbol, w.EVMAddress, s.store)
}

// RecoverSeed decrypts the seed of userID and checks it still derives the
// stored primary address. Blobs in an older format are re-sealed as V3.
func (s *WalletService) RecoverSeed(ctx context.Context, userID, password string) (string, error) {
	if err := requireFields("recover seed", userID, password); err != nil {
		return "", err
	}
	if !s.limiter.Allow(userID, actionRecover) {
		s.log.Warn("Seed recovery throttled", "user", userID)
		return "", wrapErrors.New(wrapErrors.CodeRateLimited, "recover seed")
	}

	w, err := s.store.GetWalletByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	opened, err := s.open(ctx, w.EncryptedSeed, w.Email, password)
	if err != nil {
		s.log.Warn("Seed recovery failed", "user", userID, "code", wrapErrors.CodeOf(err))
		return "", err
	}

	derived, err := s.hd.DeriveEthereumAddress(opened.Mnemonic, utils.PrimaryIndex)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(derived.Address, w.EVMAddress) {
		s.log.Error("Recovered seed does not match stored address", "user", userID, "stored", w.EVMAddress)
		return "", wrapErrors.New(wrapErrors.CodeAddressMismatch, "recover seed")
	}
	s.limiter.Reset(userID, actionRecover)

	if opened.NeedsUpgrade() {
		s.upgrade(ctx, w, opened, password)
	}
	s.log.Info("Seed recovered", "user", userID, "format", opened.Format)
	return opened.Mnemonic, nil
}

// upgrade re-seals a legacy blob. Failure leaves the old blob in place and
// is only logged: the caller already holds a verified mnemonic.
func (s *WalletService) upgrade(ctx context.Context, w *entity.Wallet, opened *domain.OpenedSeed, password string) {
	blob, err := s.encrypt(ctx, opened.Mnemonic, w.Email, password)
	if err != nil {
		s.log.Error("Seed upgrade failed", "user", w.UserID, "from", opened.Format, "err", err)
		return
	}
	w.EncryptedSeed = blob
	w.SeedFormat = string(domain.FormatSealedV3)
	w.UpdatedAt = s.now()
	if err := s.store.UpdateWallet(ctx, w); err != nil {
		s.log.Error("Seed upgrade failed", "user", w.UserID, "from", opened.Format, "err", err)
		return
	}
	s.log.Info("Seed upgraded", "user", w.UserID, "from", opened.Format, "to", domain.FormatSealedV3)
}

// ChangePassword re-seals the seed of userID under newPassword.
func (s *WalletService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := requireFields("change password", userID, oldPassword, newPassword); err != nil {
		return err
	}
	if !s.limiter.Allow(userID, actionPassword) {
		return wrapErrors.New(wrapErrors.CodeRateLimited, "change password")
	}
	w, err := s.store.GetWalletByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	blob, err := s.vault.Rewrap(w.EncryptedSeed,
		domain.Credentials{Email: w.Email, Password: oldPassword},
		domain.Credentials{Email: w.Email, Password: newPassword},
	)
	s.sem.Release(1)
	if err != nil {
		s.log.Warn("Password change failed", "user", userID, "code", wrapErrors.CodeOf(err))
		return err
	}
	s.limiter.Reset(userID, actionPassword)

	w.EncryptedSeed = blob
	w.SeedFormat = string(domain.FormatSealedV3)
	w.UpdatedAt = s.now()
	if err := s.store.UpdateWallet(ctx, w); err != nil {
		return err
	}
	s.log.Info("Password changed", "user", userID)
	return nil
}

// SetDefaultAddress points a pooled asset at address after validating it for
// the asset's chain. EVM assets are always derived and cannot be pooled.
func (s *WalletService) SetDefaultAddress(ctx context.Context, symbol, address, actor string) (*entity.DefaultAddress, error) {
	asset, err := domain.NormalizeAsset(symbol)
	if err != nil {
		return nil, err
	}
	if asset.IsEVM() {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUnsupportedAsset, "set default address",
			errors.New(string(asset)+" addresses are derived per user"))
	}
	address = strings.TrimSpace(address)
	v, ok := s.validators.For(asset.Chain())
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeUnsupportedAsset, "set default address")
	}
	if err := v.ValidateAddress(address); err != nil {
		return nil, err
	}

	d := &entity.DefaultAddress{
		Asset:     string(asset),
		Address:   address,
		UpdatedBy: actor,
		UpdatedAt: s.now(),
	}
	if err := s.store.SetDefaultAddress(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("Default address updated", "asset", asset, "address", address, "by", actor)
	return d, nil
}

func (s *WalletService) ListDefaultAddresses(ctx context.Context) ([]*entity.DefaultAddress, error) {
	return s.store.ListDefaultAddresses(ctx)
}

// ValidateMnemonic reports whether phrase is an acceptable 12-word mnemonic.
func (s *WalletService) ValidateMnemonic(phrase string) bool {
	return domain.ValidateMnemonic(phrase)
}

func (s *WalletService) encrypt(ctx context.Context, mnemonic, email, password string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)
	return s.vault.Encrypt(mnemonic, email, password)
}

func (s *WalletService) open(ctx context.Context, blob, email, password string) (*domain.OpenedSeed, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.vault.Open(blob, email, password)
}

func requireFields(op string, fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidInput, op, errors.New("missing required field"))
		}
	}
	return nil
}
