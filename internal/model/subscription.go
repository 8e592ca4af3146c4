package model

import (
	"time"
)

// UserSubscription 用户当前订阅及本周期用量
type UserSubscription struct {
	PlanID            *PlanID    `json:"planId"`
	IsYearly          bool       `json:"isYearly"`
	ExpiresAt         *time.Time `json:"expiresAt"`
	CollectionsUsed   int        `json:"collectionsUsed"`
	AICollectionsUsed int        `json:"aiCollectionsUsed"`
	LikesUsed         int        `json:"likesUsed"`
	ViewsUsed         int        `json:"viewsUsed"`
}

// Used 返回某个维度的已用量
func (s UserSubscription) Used(d Dimension) int {
	switch d {
	case DimensionCollections:
		return s.CollectionsUsed
	case DimensionAICollections:
		return s.AICollectionsUsed
	case DimensionLikes:
		return s.LikesUsed
	case DimensionViews:
		return s.ViewsUsed
	}
	return 0
}

// SetUsed 设置某个维度的已用量
func (s *UserSubscription) SetUsed(d Dimension, n int) {
	switch d {
	case DimensionCollections:
		s.CollectionsUsed = n
	case DimensionAICollections:
		s.AICollectionsUsed = n
	case DimensionLikes:
		s.LikesUsed = n
	case DimensionViews:
		s.ViewsUsed = n
	}
}

// Clone 拷贝指针字段
func (s UserSubscription) Clone() UserSubscription {
	c := s
	if s.PlanID != nil {
		id := *s.PlanID
		c.PlanID = &id
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	return c
}

// UsageUpdate 调用方算好的计数新值，nil 表示不修改
type UsageUpdate struct {
	CollectionsUsed   *int `json:"collectionsUsed,omitempty"`
	AICollectionsUsed *int `json:"aiCollectionsUsed,omitempty"`
	LikesUsed         *int `json:"likesUsed,omitempty"`
	ViewsUsed         *int `json:"viewsUsed,omitempty"`
}

// Apply 合并到 s
func (u UsageUpdate) Apply(s *UserSubscription) {
	if u.CollectionsUsed != nil {
		s.CollectionsUsed = *u.CollectionsUsed
	}
	if u.AICollectionsUsed != nil {
		s.AICollectionsUsed = *u.AICollectionsUsed
	}
	if u.LikesUsed != nil {
		s.LikesUsed = *u.LikesUsed
	}
	if u.ViewsUsed != nil {
		s.ViewsUsed = *u.ViewsUsed
	}
}
