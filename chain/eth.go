package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
	"github.com/linlinbupt123-crypto/seed_custody/utils"
)

const (
	// maxChildRetries bounds the BIP32 "skip to the next index" rule for
	// children whose key is invalid (probability ~2^-127 per level).
	maxChildRetries = 16
)

// deriveChild is swapped out in tests to exercise the invalid-child path.
var deriveChild = func(k *hdkeychain.ExtendedKey, i uint32) (*hdkeychain.ExtendedKey, error) {
	return k.Derive(i)
}

type ETHChain struct{}

func NewETHChain() *ETHChain {
	return &ETHChain{}
}

// EthereumPath returns m/44'/60'/0'/0/index.
func EthereumPath(index uint32) string {
	return generatePath(utils.BIP44Purpose, utils.EthereumCoin, utils.DefaultAccount, utils.ExternalChange, index)
}

// DeriveAddress walks path from a BIP39 seed and returns the Ethereum address
// of the resulting key together with the path actually walked. The two paths
// only differ when a level produced an invalid child and the next index was used.
func (e *ETHChain) DeriveAddress(seed []byte, path string) (common.Address, string, error) {
	indices, err := ParseDerivationPath(path)
	if err != nil {
		return common.Address{}, "", wrapErrors.WrapWithCode(wrapErrors.CodeDerivation, "parse path", err)
	}

	// hdkeychain 不区分 eth 网络
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return common.Address{}, "", wrapErrors.WrapWithCode(wrapErrors.CodeDerivation, "master key", err)
	}

	key := master
	for n, idx := range indices {
		child, used, err := deriveWithRetry(key, idx)
		key.Zero()
		if err != nil {
			return common.Address{}, "", wrapErrors.WrapWithCode(wrapErrors.CodeDerivation, "child key", err)
		}
		indices[n] = used
		key = child
	}
	defer key.Zero()

	priv, err := key.ECPrivKey()
	if err != nil {
		return common.Address{}, "", wrapErrors.WrapWithCode(wrapErrors.CodeDerivation, "private key", err)
	}
	defer priv.Zero()

	return PublicKeyToAddress(priv.PubKey()), FormatDerivationPath(indices), nil
}

// PublicKeyToAddress is the Ethereum address of a secp256k1 public key.
func PublicKeyToAddress(pub *btcec.PublicKey) common.Address {
	return PubkeyBytesToAddress(pub.SerializeUncompressed())
}

func deriveWithRetry(key *hdkeychain.ExtendedKey, idx uint32) (*hdkeychain.ExtendedKey, uint32, error) {
	hardened := idx >= hdkeychain.HardenedKeyStart
	for attempt := 0; attempt <= maxChildRetries; attempt++ {
		child, err := deriveChild(key, idx)
		if err == nil {
			return child, idx, nil
		}
		if !errors.Is(err, hdkeychain.ErrInvalidChild) {
			return nil, 0, err
		}
		next := idx + 1
		if (next >= hdkeychain.HardenedKeyStart) != hardened || next == 0 {
			return nil, 0, fmt.Errorf("no valid child after index %d", idx)
		}
		idx = next
	}
	return nil, 0, fmt.Errorf("no valid child within %d retries", maxChildRetries)
}

// PubkeyBytesToAddress hashes a 65-byte uncompressed public key (0x04 prefix)
// with keccak-256 and keeps the last 20 bytes.
func PubkeyBytesToAddress(pub []byte) common.Address {
	if len(pub) == 65 {
		pub = pub[1:]
	}
	return common.BytesToAddress(crypto.Keccak256(pub)[12:])
}

// FormatAddress renders an address as 0x + 40 lowercase hex characters.
func FormatAddress(addr common.Address) string {
	return "0x" + hex.EncodeToString(addr.Bytes())
}

func (e *ETHChain) ValidateAddress(addr string) error {
	if !common.IsHexAddress(addr) || !strings.HasPrefix(addr, "0x") {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "eth address", fmt.Errorf("%q is not a 0x-prefixed 20-byte hex address", addr))
	}
	return nil
}
