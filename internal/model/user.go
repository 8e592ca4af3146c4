package model

// User 当前会话的用户档案，整体序列化后保存在键值存储中
type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Avatar        *string `json:"avatar,omitempty"`
	WalletBalance float64 `json:"walletBalance"`
	TotalEarnings float64 `json:"totalEarnings"`
	StoriesCount  int     `json:"storiesCount"`
	LikesReceived int     `json:"likesReceived"`
	ViewsReceived int     `json:"viewsReceived"`
}

// UserUpdate 部分字段更新，nil 表示不修改
type UserUpdate struct {
	Email         *string  `json:"email,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Avatar        *string  `json:"avatar,omitempty"`
	WalletBalance *float64 `json:"walletBalance,omitempty"`
	TotalEarnings *float64 `json:"totalEarnings,omitempty"`
	StoriesCount  *int     `json:"storiesCount,omitempty"`
	LikesReceived *int     `json:"likesReceived,omitempty"`
	ViewsReceived *int     `json:"viewsReceived,omitempty"`
}

// Apply 把非空字段合并到 u
func (p UserUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Avatar != nil {
		avatar := *p.Avatar
		u.Avatar = &avatar
	}
	if p.WalletBalance != nil {
		u.WalletBalance = *p.WalletBalance
	}
	if p.TotalEarnings != nil {
		u.TotalEarnings = *p.TotalEarnings
	}
	if p.StoriesCount != nil {
		u.StoriesCount = *p.StoriesCount
	}
	if p.LikesReceived != nil {
		u.LikesReceived = *p.LikesReceived
	}
	if p.ViewsReceived != nil {
		u.ViewsReceived = *p.ViewsReceived
	}
}

// Clone 深拷贝，避免调用方修改存储内部状态
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Avatar != nil {
		avatar := *u.Avatar
		c.Avatar = &avatar
	}
	return &c
}
