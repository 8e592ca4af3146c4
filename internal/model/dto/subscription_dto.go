package dto

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	PlanID   string `json:"plan_id" binding:"required,oneof=basic premium"`
	IsYearly bool   `json:"is_yearly"`
}

// PlanFeaturesInfo 套餐权益
type PlanFeaturesInfo struct {
	Collections         int  `json:"collections"`
	AICollections       int  `json:"ai_collections"`
	Likes               int  `json:"likes"`
	Views               int  `json:"views"`
	DownloadCollections bool `json:"download_collections"`
	ViewUserProfiles    bool `json:"view_user_profiles"`
}

// PlanInfo 价格页的套餐
type PlanInfo struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	MonthlyPrice  float64          `json:"monthly_price"`
	YearlyPrice   float64          `json:"yearly_price"`
	Price         float64          `json:"price"` // 按请求的计费周期
	YearlySavings float64          `json:"yearly_savings"`
	Features      PlanFeaturesInfo `json:"features"`
}

// UsageInfo 某个维度的用量
type UsageInfo struct {
	Quota     int `json:"quota"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// SubscriptionInfo 当前订阅
type SubscriptionInfo struct {
	PlanID              string               `json:"plan_id,omitempty"`
	PlanName            string               `json:"plan_name,omitempty"`
	IsYearly            bool                 `json:"is_yearly"`
	ExpiresAt           string               `json:"expires_at,omitempty"`
	Usage               map[string]UsageInfo `json:"usage"`
	DownloadCollections bool                 `json:"download_collections"`
	ViewUserProfiles    bool                 `json:"view_user_profiles"`
}
