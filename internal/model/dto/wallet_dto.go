package dto

// ConnectWalletRequest 绑定收款方式
type ConnectWalletRequest struct {
	Method string `json:"method" binding:"required"`
}

// PayoutMethodInfo 已绑定的收款方式
type PayoutMethodInfo struct {
	Method      string `json:"method"`
	ConnectedAt string `json:"connected_at"`
}

// WalletSummary 钱包概览
type WalletSummary struct {
	Balance       float64             `json:"balance"`
	TotalEarnings float64             `json:"total_earnings"`
	Methods       []*PayoutMethodInfo `json:"methods"`
	Available     []string            `json:"available"`
}
