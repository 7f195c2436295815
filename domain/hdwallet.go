package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/linlinbupt123-crypto/seed_custody/chain"
	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// DerivedAddress is the public result of one derivation. No key material
// leaves the deriver.
type DerivedAddress struct {
	Address        string `json:"address"`
	DerivationPath string `json:"derivation_path"`
	Index          uint32 `json:"index"`
}

// MaxAddressIndex is the largest non-hardened child index.
const MaxAddressIndex = hdkeychain.HardenedKeyStart - 1

// HDWallet derives EVM addresses from a mnemonic along m/44'/60'/0'/0/index.
type HDWallet struct {
	eth *chain.ETHChain
}

func NewHDWallet() *HDWallet {
	return &HDWallet{eth: chain.NewETHChain()}
}

var defaultHDWallet = NewHDWallet()

// DeriveEthereumAddress derives with the package default deriver.
func DeriveEthereumAddress(mnemonic string, index uint32) (*DerivedAddress, error) {
	return defaultHDWallet.DeriveEthereumAddress(mnemonic, index)
}

// DeriveEthereumAddress works strictly on the supplied mnemonic; identical
// (mnemonic, index) pairs always yield identical results.
func (h *HDWallet) DeriveEthereumAddress(mnemonic string, index uint32) (*DerivedAddress, error) {
	if index > MaxAddressIndex {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidInput, "derive ethereum address",
			fmt.Errorf("index %d exceeds %d", index, uint32(MaxAddressIndex)))
	}
	normalized, err := ParseMnemonic(mnemonic)
	if err != nil {
		// caller's fault, so the outer code stays INVALID_MNEMONIC
		return nil, &wrapErrors.AppError{
			Code: wrapErrors.CodeInvalidMnemonic,
			Op:   "derive ethereum address",
			Err:  fmt.Errorf("%w: %w", wrapErrors.ErrDerivation, err),
		}
	}

	// empty BIP39 passphrase; the vault password never enters the seed
	seed := bip39.NewSeed(normalized, "")
	defer clearBytes(seed)

	addr, path, err := h.eth.DeriveAddress(seed, chain.EthereumPath(index))
	if err != nil {
		return nil, err
	}

	indices, err := chain.ParseDerivationPath(path)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeDerivation, "derive ethereum address", err)
	}

	return &DerivedAddress{
		Address:        chain.FormatAddress(addr),
		DerivationPath: path,
		Index:          indices[len(indices)-1],
	}, nil
}
