package chain

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

const (
	tronAddressPrefix = 0x41
	tronAddressLen    = 25 // prefix + 20-byte hash + 4-byte checksum
)

// TRONChain validates the shared custodial TRON (USDT-TRC20) deposit address.
type TRONChain struct{}

func NewTRONChain() *TRONChain {
	return &TRONChain{}
}

func (t *TRONChain) ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "tron address", err)
	}
	if len(raw) != tronAddressLen || raw[0] != tronAddressPrefix {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "tron address", errors.New("wrong length or prefix"))
	}
	first := sha256.Sum256(raw[:21])
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], raw[21:]) {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "tron address", errors.New("bad checksum"))
	}
	return nil
}
