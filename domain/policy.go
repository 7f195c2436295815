package domain

import (
	"context"
	"errors"
	"strings"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// Asset is a supported asset symbol.
type Asset string

const (
	AssetETH       Asset = "ETH"
	AssetUSDTERC20 Asset = "USDT-ERC20"
	AssetUSDCERC20 Asset = "USDC-ERC20"
	AssetBTC       Asset = "BTC"
	AssetUSDTTRC20 Asset = "USDT-TRC20"
)

var supportedAssets = []Asset{AssetETH, AssetUSDTERC20, AssetUSDCERC20, AssetBTC, AssetUSDTTRC20}

var assetAliases = map[string]Asset{
	"USDT_ERC20": AssetUSDTERC20,
	"USDC_ERC20": AssetUSDCERC20,
	"USDT_TRC20": AssetUSDTTRC20,
	"USDT_TRON":  AssetUSDTTRC20,
	"USDT-TRON":  AssetUSDTTRC20,
}

// SupportedAssets returns every asset in a stable order.
func SupportedAssets() []Asset {
	out := make([]Asset, len(supportedAssets))
	copy(out, supportedAssets)
	return out
}

func NormalizeAsset(symbol string) (Asset, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if a, ok := assetAliases[s]; ok {
		return a, nil
	}
	for _, a := range supportedAssets {
		if string(a) == s {
			return a, nil
		}
	}
	return "", wrapErrors.New(wrapErrors.CodeUnsupportedAsset, "normalize asset "+symbol)
}

// IsEVM reports whether the asset lives in the Ethereum address space and so
// shares the derived m/44'/60'/0'/0/0 address.
func (a Asset) IsEVM() bool {
	switch a {
	case AssetETH, AssetUSDTERC20, AssetUSDCERC20:
		return true
	}
	return false
}

// Chain is the chain name used to pick an address validator.
func (a Asset) Chain() string {
	switch a {
	case AssetBTC:
		return "btc"
	case AssetUSDTTRC20:
		return "tron"
	}
	return "eth"
}

// DefaultAddressPool yields the admin-managed custodial address for assets
// that are not derived in-house. The same address is handed to every user.
type DefaultAddressPool interface {
	DefaultAddress(ctx context.Context, asset Asset) (string, error)
}

// StaticAddressPool is a fixed in-memory pool.
type StaticAddressPool map[Asset]string

func (p StaticAddressPool) DefaultAddress(_ context.Context, asset Asset) (string, error) {
	addr, ok := p[asset]
	if !ok || addr == "" {
		return "", wrapErrors.New(wrapErrors.CodeDefaultAddressMissing, "default address "+string(asset))
	}
	return addr, nil
}

// ResolveAddress maps symbol to the derived EVM address or to the pool's
// shared address.
func ResolveAddress(ctx context.Context, symbol string, derivedEvmAddress string, pool DefaultAddressPool) (string, error) {
	asset, err := NormalizeAsset(symbol)
	if err != nil {
		return "", err
	}
	if asset.IsEVM() {
		if derivedEvmAddress == "" {
			return "", wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "resolve "+string(asset),
				errors.New("no derived address"))
		}
		return derivedEvmAddress, nil
	}
	if pool == nil {
		return "", wrapErrors.New(wrapErrors.CodeDefaultAddressMissing, "resolve "+string(asset))
	}
	addr, err := pool.DefaultAddress(ctx, asset)
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", wrapErrors.New(wrapErrors.CodeDefaultAddressMissing, "resolve "+string(asset))
	}
	return addr, nil
}

// ResolveAll resolves every supported asset.
func ResolveAll(ctx context.Context, derivedEvmAddress string, pool DefaultAddressPool) (map[Asset]string, error) {
	out := make(map[Asset]string, len(supportedAssets))
	for _, a := range supportedAssets {
		addr, err := ResolveAddress(ctx, string(a), derivedEvmAddress, pool)
		if err != nil {
			return nil, err
		}
		out[a] = addr
	}
	return out, nil
}
