package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// BTCChain validates the shared custodial BTC deposit address. BTC addresses
// are never derived by this service.
type BTCChain struct {
	MainNet bool
}

func NewBTCChain(mainnet bool) *BTCChain {
	return &BTCChain{MainNet: mainnet}
}

func (b *BTCChain) netParams() *chaincfg.Params {
	if b.MainNet {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

func (b *BTCChain) ValidateAddress(addr string) error {
	params := b.netParams()
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "btc address", err)
	}
	if !decoded.IsForNet(params) {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "btc address", fmt.Errorf("address is not for %s", params.Name))
	}
	return nil
}
