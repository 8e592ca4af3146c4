package model

type PlanID string

const (
	PlanBasic   PlanID = "basic"
	PlanPremium PlanID = "premium"
)

// Dimension 按套餐限额计数的动作类型
type Dimension string

const (
	DimensionCollections   Dimension = "collections"
	DimensionAICollections Dimension = "aiCollections"
	DimensionLikes         Dimension = "likes"
	DimensionViews         Dimension = "views"
)

// Dimensions 固定顺序，便于遍历
var Dimensions = []Dimension{
	DimensionCollections,
	DimensionAICollections,
	DimensionLikes,
	DimensionViews,
}

func (d Dimension) Valid() bool {
	switch d {
	case DimensionCollections, DimensionAICollections, DimensionLikes, DimensionViews:
		return true
	}
	return false
}

// Feature 套餐的布尔权益
type Feature string

const (
	FeatureDownloadCollections Feature = "downloadCollections"
	FeatureViewUserProfiles    Feature = "viewUserProfiles"
)

type PlanFeatures struct {
	Collections         int  `json:"collections"`
	AICollections       int  `json:"aiCollections"`
	Likes               int  `json:"likes"`
	Views               int  `json:"views"`
	DownloadCollections bool `json:"downloadCollections"`
	ViewUserProfiles    bool `json:"viewUserProfiles"`
}

// Quota 返回某个维度的限额
func (f PlanFeatures) Quota(d Dimension) int {
	switch d {
	case DimensionCollections:
		return f.Collections
	case DimensionAICollections:
		return f.AICollections
	case DimensionLikes:
		return f.Likes
	case DimensionViews:
		return f.Views
	}
	return 0
}

// Flag 返回布尔权益；未知名称一律为 false
func (f PlanFeatures) Flag(feature Feature) bool {
	switch feature {
	case FeatureDownloadCollections:
		return f.DownloadCollections
	case FeatureViewUserProfiles:
		return f.ViewUserProfiles
	}
	return false
}

type SubscriptionPlan struct {
	ID           PlanID       `json:"id"`
	Name         string       `json:"name"`
	MonthlyPrice float64      `json:"monthlyPrice"`
	YearlyPrice  float64      `json:"yearlyPrice"`
	Features     PlanFeatures `json:"features"`
}

// Price 按计费周期取价格
func (p SubscriptionPlan) Price(yearly bool) float64 {
	if yearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// YearlySavings 年付相对按月付 12 个月节省的金额
func (p SubscriptionPlan) YearlySavings() float64 {
	return p.MonthlyPrice*12 - p.YearlyPrice
}

var planCatalog = [...]SubscriptionPlan{
	{
		ID:           PlanBasic,
		Name:         "Базовый",
		MonthlyPrice: 30,
		YearlyPrice:  240,
		Features: PlanFeatures{
			Collections:   100,
			AICollections: 1,
			Likes:         10,
			Views:         1000,
		},
	},
	{
		ID:           PlanPremium,
		Name:         "Премиум",
		MonthlyPrice: 300,
		YearlyPrice:  2400,
		Features: PlanFeatures{
			Collections:         1000,
			AICollections:       200,
			Likes:               100,
			Views:               10000,
			DownloadCollections: true,
			ViewUserProfiles:    true,
		},
	},
}

// Plans 返回套餐目录的副本，basic 在前
func Plans() []SubscriptionPlan {
	plans := make([]SubscriptionPlan, len(planCatalog))
	copy(plans, planCatalog[:])
	return plans
}

// FindPlan 按 ID 查找套餐
func FindPlan(id PlanID) (SubscriptionPlan, bool) {
	for _, p := range planCatalog {
		if p.ID == id {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}
