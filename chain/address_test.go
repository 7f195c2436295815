package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

func TestBTCValidateAddress(t *testing.T) {
	main := NewBTCChain(true)
	assert.NoError(t, main.ValidateAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"))
	assert.NoError(t, main.ValidateAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"))

	for _, bad := range []string{"", "notanaddress", "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"} {
		assert.ErrorIs(t, main.ValidateAddress(bad), wrapErrors.ErrInvalidAddress, "address %q", bad)
	}

	test := NewBTCChain(false)
	assert.NoError(t, test.ValidateAddress("mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"))
	assert.Error(t, test.ValidateAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"))
}

func TestTRONValidateAddress(t *testing.T) {
	tron := NewTRONChain()
	assert.NoError(t, tron.ValidateAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))
	assert.NoError(t, tron.ValidateAddress("TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"))

	for _, bad := range []string{
		"",
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", // checksum
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", // bitcoin prefix
		"0OIl",                               // not base58
	} {
		assert.ErrorIs(t, tron.ValidateAddress(bad), wrapErrors.ErrInvalidAddress, "address %q", bad)
	}
}

func TestValidatorsFor(t *testing.T) {
	v := NewValidators(true)
	val, ok := v.For("BTC")
	require.True(t, ok)
	assert.NoError(t, val.ValidateAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"))

	_, ok = v.For("sol")
	assert.False(t, ok)
}
