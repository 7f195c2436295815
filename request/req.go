package request

// --- 请求结构 ---
type CreateWalletReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ImportWalletReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Mnemonic string `json:"mnemonic" binding:"required"`
}

type RecoverSeedReq struct {
	Password string `json:"password" binding:"required"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type RegenerateWalletReq struct {
	Password string `json:"password" binding:"required"`
}

type ValidateMnemonicReq struct {
	Mnemonic string `json:"mnemonic" binding:"required"`
}

type SetDefaultAddressReq struct {
	Address string `json:"address" binding:"required"`
}
