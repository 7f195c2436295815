package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/seed_custody/request"
	"github.com/linlinbupt123-crypto/seed_custody/service"
)

const operatorHeader = "X-Operator"

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(ws *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: ws}
}

// CreateWallet, create HD wallet and main address. The mnemonic is in this
// response and nowhere else.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req request.CreateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	created, err := h.walletService.CreateWallet(c.Request.Context(), c.Param("userID"), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ImportWallet, store an existing mnemonic
func (h *WalletHandler) ImportWallet(c *gin.Context) {
	var req request.ImportWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	created, err := h.walletService.ImportWallet(c.Request.Context(), c.Param("userID"), req.Email, req.Password, req.Mnemonic)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"wallet":    created.Wallet,
		"addresses": created.Addresses,
	})
}

// GetAddresses, get all addresses of a user
func (h *WalletHandler) GetAddresses(c *gin.Context) {
	addrs, err := h.walletService.GetAddresses(c.Request.Context(), c.Param("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, addrs)
}

// ResolveAddress, deposit address for one asset
func (h *WalletHandler) ResolveAddress(c *gin.Context) {
	asset := c.Param("asset")
	addr, err := h.walletService.ResolveAddress(c.Request.Context(), c.Param("userID"), asset)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":   asset,
		"address": addr,
	})
}

func (h *WalletHandler) RecoverSeed(c *gin.Context) {
	var req request.RecoverSeedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	mnemonic, err := h.walletService.RecoverSeed(c.Request.Context(), c.Param("userID"), req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mnemonic": mnemonic})
}

func (h *WalletHandler) ChangePassword(c *gin.Context) {
	var req request.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	if err := h.walletService.ChangePassword(c.Request.Context(), c.Param("userID"), req.OldPassword, req.NewPassword); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WalletHandler) ValidateMnemonic(c *gin.Context) {
	var req request.ValidateMnemonicReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": h.walletService.ValidateMnemonic(req.Mnemonic)})
}

// --- admin ---

func (h *WalletHandler) RegenerateWallet(c *gin.Context) {
	var req request.RegenerateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	created, err := h.walletService.RegenerateWallet(c.Request.Context(), c.Param("userID"), req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (h *WalletHandler) ListDefaultAddresses(c *gin.Context) {
	list, err := h.walletService.ListDefaultAddresses(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *WalletHandler) SetDefaultAddress(c *gin.Context) {
	var req request.SetDefaultAddressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	operator := c.GetHeader(operatorHeader)
	if operator == "" {
		operator = "admin"
	}
	d, err := h.walletService.SetDefaultAddress(c.Request.Context(), c.Param("asset"), req.Address, operator)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}
