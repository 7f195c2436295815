package api

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *WalletHandler, logger log.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(logger))

	wallet := r.Group("/wallet/:userID")
	{
		// 创建 HD 钱包 + 地址
		wallet.POST("", h.CreateWallet)
		wallet.POST("/import", h.ImportWallet)
		// 获取用户所有地址
		wallet.GET("/addresses", h.GetAddresses)
		wallet.GET("/address/:asset", h.ResolveAddress)
		wallet.POST("/recover", h.RecoverSeed)
		wallet.POST("/password", h.ChangePassword)
	}

	r.POST("/mnemonic/validate", h.ValidateMnemonic)

	admin := r.Group("/admin")
	{
		admin.POST("/wallet/:userID/regenerate", h.RegenerateWallet)
		admin.GET("/default-address", h.ListDefaultAddresses)
		admin.PUT("/default-address/:asset", h.SetDefaultAddress)
	}

	return r
}
