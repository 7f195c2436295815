package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinel errors, one per error kind. AppError values carrying the
// matching code report true for errors.Is against them.
var (
	ErrInvalidMnemonic       = stderrors.New("invalid mnemonic")
	ErrDerivation            = stderrors.New("key derivation failed")
	ErrDecryption            = stderrors.New("wrong password or corrupted data")
	ErrEntropy               = stderrors.New("secure random source unavailable")
	ErrEncryption            = stderrors.New("seed encryption failed")
	ErrUnsupportedAsset      = stderrors.New("unsupported asset")
	ErrDefaultAddressMissing = stderrors.New("default address not configured")
	ErrInvalidAddress        = stderrors.New("invalid address")
	ErrWalletNotFound        = stderrors.New("wallet not found")
	ErrWalletExists          = stderrors.New("wallet already exists")
	ErrAddressMismatch       = stderrors.New("derived address does not match stored address")
	ErrRateLimited           = stderrors.New("too many attempts")
	ErrInvalidInput          = stderrors.New("invalid input")
)

var sentinels = map[Code]error{
	CodeInvalidMnemonic:       ErrInvalidMnemonic,
	CodeDerivation:            ErrDerivation,
	CodeDecryption:            ErrDecryption,
	CodeEntropy:               ErrEntropy,
	CodeEncryption:            ErrEncryption,
	CodeUnsupportedAsset:      ErrUnsupportedAsset,
	CodeDefaultAddressMissing: ErrDefaultAddressMissing,
	CodeInvalidAddress:        ErrInvalidAddress,
	CodeWalletNotFound:        ErrWalletNotFound,
	CodeWalletExists:          ErrWalletExists,
	CodeAddressMismatch:       ErrAddressMismatch,
	CodeRateLimited:           ErrRateLimited,
	CodeInvalidInput:          ErrInvalidInput,
}

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel registered for the error's code.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// New builds an AppError around the sentinel for code.
func New(code Code, op string) error {
	err, ok := sentinels[code]
	if !ok {
		err = stderrors.New(string(code))
	}
	return &AppError{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
