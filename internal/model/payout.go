package model

import (
	"time"
)

// 支持绑定的收款方式
const (
	PayoutVisa       = "visa"
	PayoutMastercard = "mastercard"
	PayoutPaypal     = "paypal"
	PayoutMir        = "mir"
)

var PayoutMethods = []string{PayoutVisa, PayoutMastercard, PayoutPaypal, PayoutMir}

func ValidPayoutMethod(method string) bool {
	for _, m := range PayoutMethods {
		if m == method {
			return true
		}
	}
	return false
}

type PayoutMethod struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_payout_user_method" json:"user_id"`
	Method      string    `gorm:"size:20;not null;uniqueIndex:idx_payout_user_method" json:"method"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (PayoutMethod) TableName() string {
	return "payout_methods"
}
