package domain

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bip39 "github.com/tyler-smith/go-bip39"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

const newsMnemonic = "news call solid spoil nature orbit nephew soda citizen pitch unveil quick"

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), MnemonicWords)
	assert.True(t, ValidateMnemonic(mnemonic))

	other, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.NotEqual(t, mnemonic, other)
}

func TestGeneratedMnemonicsAlwaysValidate(t *testing.T) {
	for i := 0; i < 200; i++ {
		mnemonic, err := GenerateMnemonic()
		require.NoError(t, err)
		require.True(t, ValidateMnemonic(mnemonic), "generated mnemonic failed validation")
	}
}

func TestGeneratorUsesInjectedEntropy(t *testing.T) {
	g := NewMnemonicGenerator(bytes.NewReader(make([]byte, 16)))
	mnemonic, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", mnemonic)
}

func TestGeneratorEntropyFailure(t *testing.T) {
	g := NewMnemonicGenerator(iotest.ErrReader(errors.New("rng offline")))
	mnemonic, err := g.Generate()
	assert.Empty(t, mnemonic)
	assert.ErrorIs(t, err, wrapErrors.ErrEntropy)

	short := NewMnemonicGenerator(bytes.NewReader(make([]byte, 8)))
	_, err = short.Generate()
	assert.ErrorIs(t, err, wrapErrors.ErrEntropy)
}

func TestValidateMnemonic(t *testing.T) {
	assert.True(t, ValidateMnemonic(newsMnemonic))
	assert.True(t, ValidateMnemonic("  News CALL solid\tspoil nature orbit nephew soda citizen pitch unveil quick\n"))

	for _, bad := range []string{
		"",
		"   ",
		"invalid words here",
		"news call solid spoil nature orbit nephew soda citizen pitch unveil",
		"news call solid spoil nature orbit nephew soda citizen pitch unveil quick quick",
		"news call solid spoil nature orbit nephew soda citizen pitch unveil qwerty",
		"news call solid spoil nature orbit nephew soda citizen pitch unveil abandon",
	} {
		assert.False(t, ValidateMnemonic(bad), "phrase %q", bad)
	}
}

func TestValidateRejectsOtherLengths(t *testing.T) {
	entropy := make([]byte, 32)
	long, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)
	require.True(t, bip39.IsMnemonicValid(long))
	assert.False(t, ValidateMnemonic(long), "24-word phrases are not accepted")
}

func TestSubstitutionUsuallyBreaksChecksum(t *testing.T) {
	words := strings.Fields(newsMnemonic)
	passed, total := 0, 0
	for _, w := range bip39.GetWordList() {
		if w == words[11] {
			continue
		}
		candidate := append(append([]string{}, words[:11]...), w)
		total++
		if ValidateMnemonic(strings.Join(candidate, " ")) {
			passed++
		}
	}
	// a 4-bit checksum lets roughly 1 in 16 substitutions through
	assert.Equal(t, 2047, total)
	assert.Less(t, passed, total/8)
}

func TestParseMnemonicDoesNotEchoWords(t *testing.T) {
	_, err := ParseMnemonic("news call solid spoil nature orbit nephew soda citizen pitch unveil zzzsecret")
	require.Error(t, err)
	assert.ErrorIs(t, err, wrapErrors.ErrInvalidMnemonic)
	assert.NotContains(t, err.Error(), "zzzsecret")
}

func TestNormalizeMnemonic(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeMnemonic("  A\tb \n C "))
	assert.Equal(t, "", NormalizeMnemonic(" \t "))
}
