package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// ParseDerivationPath accepts "m/44'/60'/0'/0/0". Hardened levels carry a
// trailing apostrophe and are returned with hdkeychain.HardenedKeyStart added.
func ParseDerivationPath(path string) ([]uint32, error) {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "m/") {
		return nil, errors.New("path must start with m/")
	}
	p = p[2:]
	if p == "" {
		return nil, errors.New("empty derivation path")
	}

	parts := strings.Split(p, "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'")
		if hardened {
			part = strings.TrimSuffix(part, "'")
		}
		if part == "" {
			return nil, errors.New("invalid path segment")
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid derivation index %q", part)
		}
		idx := uint32(v)
		if hardened {
			if idx >= hdkeychain.HardenedKeyStart {
				return nil, fmt.Errorf("hardened index %d out of range", idx)
			}
			idx += hdkeychain.HardenedKeyStart
		} else if idx >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("normal index %d out of range", idx)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// FormatDerivationPath is the inverse of ParseDerivationPath.
func FormatDerivationPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		b.WriteByte('/')
		if idx >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(idx-hdkeychain.HardenedKeyStart), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

// BIP44 path helper: m / purpose' / coin_type' / account' / change / index
func generatePath(purpose, coinType, account, change, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", purpose, coinType, account, change, index)
}
