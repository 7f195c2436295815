package errors

type Code string

const (
	CodeInvalidMnemonic       Code = "INVALID_MNEMONIC"
	CodeDerivation            Code = "DERIVATION_FAILURE"
	CodeDecryption            Code = "DECRYPTION_FAILURE"
	CodeEntropy               Code = "ENTROPY_FAILURE"
	CodeEncryption            Code = "ENCRYPTION_FAILURE"
	CodeUnsupportedAsset      Code = "UNSUPPORTED_ASSET"
	CodeDefaultAddressMissing Code = "DEFAULT_ADDRESS_MISSING"
	CodeInvalidAddress        Code = "INVALID_ADDRESS"
	CodeWalletNotFound        Code = "WALLET_NOT_FOUND"
	CodeWalletExists          Code = "WALLET_EXISTS"
	CodeAddressMismatch       Code = "ADDRESS_MISMATCH"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeStore                 Code = "STORE_ERROR"
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeUnknown               Code = "UNKNOWN_ERROR"
)
