package utils

/*
BIP-44 路径: m / purpose' / coin_type' / account' / change / address_index

	m              主私钥, 由 BIP39 seed 派生
	44'            purpose, BIP-44 编号, 硬化派生
	60'            coin_type, 60' = Ethereum (ETH / ERC20 共用)
	0'             account, 从 0' 开始
	0              change, 0 = 外部链(收款地址)
	0              address_index, 从 0 开始, 常规派生

BTC / TRC20 不在本服务派生, 使用管理员配置的共享地址.
*/
const (
	BIP44Purpose   = 44
	EthereumCoin   = 60
	DefaultAccount = 0
	ExternalChange = 0
	PrimaryIndex   = 0

	ETH_DERIVATION_PATH_PREFIX = "m/44'/60'/0'/0/"
)
