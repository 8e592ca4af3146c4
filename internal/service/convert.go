package service

import (
	"strings"
	"time"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toUserInfo(u *model.User) *dto.UserInfo {
	if u == nil {
		return nil
	}
	info := &dto.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		WalletBalance: u.WalletBalance,
		TotalEarnings: u.TotalEarnings,
		StoriesCount:  u.StoriesCount,
		LikesReceived: u.LikesReceived,
		ViewsReceived: u.ViewsReceived,
	}
	if u.Avatar != nil {
		info.Avatar = *u.Avatar
	}
	return info
}

func toStoryInfo(s *model.Story, liked, withContent bool) *dto.StoryInfo {
	info := &dto.StoryInfo{
		ID:         s.ID,
		AuthorID:   s.AuthorID,
		AuthorName: s.AuthorName,
		Title:      s.Title,
		Excerpt:    s.Excerpt,
		Tags:       []string(s.Tags),
		Status:     s.Status,
		Likes:      s.LikeCount,
		Views:      s.ViewCount,
		IsLiked:    liked,
		CreatedAt:  formatTime(s.CreatedAt),
	}
	if info.Tags == nil {
		info.Tags = []string{}
	}
	if withContent {
		info.Content = s.Content
	}
	if s.PublishedAt != nil {
		info.PublishedAt = formatTime(*s.PublishedAt)
	}
	return info
}

func toCollectionInfo(c *model.Collection) *dto.CollectionInfo {
	ids := []string(c.StoryIDs)
	if ids == nil {
		ids = []string{}
	}
	return &dto.CollectionInfo{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		IsAIGenerated: c.IsAIGenerated,
		Prompt:        c.Prompt,
		Status:        c.Status,
		StoryIDs:      ids,
		StoriesCount:  c.StoriesCount,
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

func toChatInfo(c *model.Chat, viewerID string) *dto.ChatInfo {
	info := &dto.ChatInfo{
		ID:              c.ID,
		StoryID:         c.StoryID,
		IsPaid:          c.IsPaid,
		Price:           c.Price,
		LastMessage:     c.LastMessage,
		LastMessageTime: formatTime(c.LastMessageTime),
	}
	// 对方是谁取决于查看者
	if viewerID == c.AuthorID {
		info.Participant = c.InitiatorName
		info.ParticipantID = c.InitiatorID
	} else {
		info.Participant = c.AuthorName
		info.ParticipantID = c.AuthorID
	}
	return info
}

func toMessageInfo(m *model.Message, viewerID string) *dto.MessageInfo {
	return &dto.MessageInfo{
		ID:        m.ID,
		SenderID:  m.SenderID,
		IsOwn:     m.SenderID == viewerID,
		Content:   m.Content,
		IsPaid:    m.IsPaid,
		Timestamp: formatTime(m.CreatedAt),
	}
}

func toPlanFeaturesInfo(f model.PlanFeatures) dto.PlanFeaturesInfo {
	return dto.PlanFeaturesInfo{
		Collections:         f.Collections,
		AICollections:       f.AICollections,
		Likes:               f.Likes,
		Views:               f.Views,
		DownloadCollections: f.DownloadCollections,
		ViewUserProfiles:    f.ViewUserProfiles,
	}
}

func toPlanInfo(p model.SubscriptionPlan, yearly bool) *dto.PlanInfo {
	return &dto.PlanInfo{
		ID:            string(p.ID),
		Name:          p.Name,
		MonthlyPrice:  p.MonthlyPrice,
		YearlyPrice:   p.YearlyPrice,
		Price:         p.Price(yearly),
		YearlySavings: p.YearlySavings(),
		Features:      toPlanFeaturesInfo(p.Features),
	}
}

// toSubscriptionInfo 当前订阅与各维度用量；没有订阅时各维度配额为 0
func toSubscriptionInfo(ent EntitlementService) *dto.SubscriptionInfo {
	sub := ent.Subscription()
	info := &dto.SubscriptionInfo{
		IsYearly: sub.IsYearly,
		Usage:    make(map[string]dto.UsageInfo, len(model.Dimensions)),
	}

	plan, ok := ent.ActivePlan()
	if ok {
		info.PlanID = string(plan.ID)
		info.PlanName = plan.Name
		info.DownloadCollections = plan.Features.DownloadCollections
		info.ViewUserProfiles = plan.Features.ViewUserProfiles
	}
	if sub.ExpiresAt != nil {
		info.ExpiresAt = formatTime(*sub.ExpiresAt)
	}

	for _, d := range model.Dimensions {
		usage := dto.UsageInfo{Used: sub.Used(d), Remaining: ent.Remaining(d)}
		if ok {
			usage.Quota = plan.Features.Quota(d)
		}
		info.Usage[string(d)] = usage
	}
	return info
}

// distinctTags 去掉空白和重复的标签，保持原顺序
func distinctTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
