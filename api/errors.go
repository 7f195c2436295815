package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

var statusByCode = map[wrapErrors.Code]int{
	wrapErrors.CodeInvalidMnemonic:       http.StatusBadRequest,
	wrapErrors.CodeInvalidAddress:        http.StatusBadRequest,
	wrapErrors.CodeUnsupportedAsset:      http.StatusBadRequest,
	wrapErrors.CodeInvalidInput:          http.StatusBadRequest,
	wrapErrors.CodeDecryption:            http.StatusUnauthorized,
	wrapErrors.CodeWalletNotFound:        http.StatusNotFound,
	wrapErrors.CodeDefaultAddressMissing: http.StatusNotFound,
	wrapErrors.CodeWalletExists:          http.StatusConflict,
	wrapErrors.CodeAddressMismatch:       http.StatusConflict,
	wrapErrors.CodeRateLimited:           http.StatusTooManyRequests,
}

// StatusOf maps an error code to its HTTP status; unknown codes are 500.
func StatusOf(code wrapErrors.Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"code", "error"}. Internal failures get a generic
// message so store or driver details stay in the log.
func abortWithError(c *gin.Context, err error) {
	code := wrapErrors.CodeOf(err)
	status := StatusOf(code)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg})
}

func badRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":  wrapErrors.CodeInvalidInput,
		"error": "invalid request body",
	})
}
