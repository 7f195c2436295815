package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

var (
	errUnknownWord = errors.New("word not in wordlist")
	errChecksum    = errors.New("checksum mismatch")
)

const (
	// MnemonicWords is the only phrase length accepted: 128 bits of entropy
	// plus a 4-bit checksum.
	MnemonicWords = 12
	entropyBits   = 128
)

// MnemonicGenerator draws BIP39 entropy from an injected source.
type MnemonicGenerator struct {
	rand io.Reader
}

func NewMnemonicGenerator(r io.Reader) *MnemonicGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &MnemonicGenerator{rand: r}
}

var defaultGenerator = NewMnemonicGenerator(rand.Reader)

// GenerateMnemonic returns a fresh 12-word English mnemonic.
func GenerateMnemonic() (string, error) {
	return defaultGenerator.Generate()
}

// Generate fails with an entropy error if the source cannot supply 16 bytes;
// it never falls back to another source.
func (g *MnemonicGenerator) Generate() (string, error) {
	entropy := make([]byte, entropyBits/8)
	defer clearBytes(entropy)

	if _, err := io.ReadFull(g.rand, entropy); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEntropy, "read entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEntropy, "encode mnemonic", err)
	}
	return mnemonic, nil
}

// NormalizeMnemonic applies NFKD, lower-cases and collapses whitespace.
func NormalizeMnemonic(phrase string) string {
	phrase = norm.NFKD.String(phrase)
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidateMnemonic reports whether phrase is a 12-word English mnemonic with a
// valid checksum. It never panics on malformed input.
func ValidateMnemonic(phrase string) bool {
	_, err := ParseMnemonic(phrase)
	return err == nil
}

// ParseMnemonic validates phrase and returns its canonical form.
func ParseMnemonic(phrase string) (string, error) {
	normalized := NormalizeMnemonic(phrase)
	if normalized == "" {
		return "", wrapErrors.New(wrapErrors.CodeInvalidMnemonic, "parse mnemonic")
	}
	if n := len(strings.Fields(normalized)); n != MnemonicWords {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeInvalidMnemonic, "parse mnemonic",
			fmt.Errorf("expected %d words, got %d", MnemonicWords, n))
	}
	entropy, err := bip39.EntropyFromMnemonic(normalized)
	if err != nil {
		// bip39 echoes unknown words back in its error; keep them out of ours.
		cause := errUnknownWord
		if errors.Is(err, bip39.ErrChecksumIncorrect) {
			cause = errChecksum
		}
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeInvalidMnemonic, "parse mnemonic", cause)
	}
	clearBytes(entropy)
	return normalized, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
