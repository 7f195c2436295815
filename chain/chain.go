package chain

import "strings"

// AddressValidator checks that a string is a well-formed address for one chain.
type AddressValidator interface {
	ValidateAddress(addr string) error
}

// Validators maps a chain name to its validator.
type Validators map[string]AddressValidator

// NewValidators returns validators for every chain the custody service stores
// addresses for.
func NewValidators(btcMainNet bool) Validators {
	return Validators{
		"eth":  NewETHChain(),
		"btc":  NewBTCChain(btcMainNet),
		"tron": NewTRONChain(),
	}
}

func (v Validators) For(chainName string) (AddressValidator, bool) {
	val, ok := v[strings.ToLower(chainName)]
	return val, ok
}
