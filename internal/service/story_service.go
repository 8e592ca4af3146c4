package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/repository"
)

// 故事校验阈值（按字符计）
const (
	minTitleRunes   = 10
	maxTitleRunes   = 200
	minContentRunes = 100
	maxContentRunes = 2000
	minStoryTags    = 2
	excerptRunes    = 150
)

// JobQueue 后台任务队列，为 nil 时任务在请求内同步执行
type JobQueue interface {
	Push(ctx context.Context, msg *queue.JobMessage) error
}

type StoryService struct {
	storyRepo *repository.StoryRepository
	likeRepo  *repository.LikeRepository
	chats     *ChatService
	jobs      JobQueue
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewStoryService(
	storyRepo *repository.StoryRepository,
	likeRepo *repository.LikeRepository,
	chats *ChatService,
	jobs JobQueue,
	cfg *config.Config,
	logger *zap.Logger,
) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryService{
		storyRepo: storyRepo,
		likeRepo:  likeRepo,
		chats:     chats,
		jobs:      jobs,
		cfg:       cfg,
		logger:    logger.Named("story"),
		now:       time.Now,
	}
}

// List 已发布故事列表，a 可以为 nil
func (s *StoryService) List(ctx context.Context, a Actor, req *dto.StoryListRequest) ([]*dto.StoryInfo, int64, error) {
	stories, err := s.storyRepo.ListPublished(strings.TrimSpace(req.Tag), req.Sort)
	if err != nil {
		return nil, 0, err
	}

	if query := strings.ToLower(strings.TrimSpace(req.Search)); query != "" {
		filtered := stories[:0]
		for _, story := range stories {
			if matchesSearch(story, query) {
				filtered = append(filtered, story)
			}
		}
		stories = filtered
	}

	total := int64(len(stories))
	page, pageSize := normalizePage(req.Page, req.PageSize)
	start := (page - 1) * pageSize
	if start > len(stories) {
		start = len(stories)
	}
	end := start + pageSize
	if end > len(stories) {
		end = len(stories)
	}
	stories = stories[start:end]

	liked, err := s.likedFlags(a, stories)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.StoryInfo, len(stories))
	for i, story := range stories {
		items[i] = toStoryInfo(story, liked[story.ID], false)
	}
	return items, total, nil
}

// Tags 已发布故事使用过的标签
func (s *StoryService) Tags() ([]string, error) {
	return s.storyRepo.ListTags()
}

// Criteria 发布须确认的标准
func (s *StoryService) Criteria() []string {
	criteria := make([]string, s.criteriaCount())
	copy(criteria, model.StoryCriteria)
	return criteria
}

// Get 故事详情。未发布的故事只有作者本人可见
func (s *StoryService) Get(ctx context.Context, a Actor, id int64) (*dto.StoryInfo, error) {
	story, err := s.storyRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}

	if story.Status != model.StoryStatusPublished {
		user, err := RequireUser(a)
		if err != nil || user.ID != story.AuthorID {
			return nil, ErrStoryNotFound
		}
	}

	liked, err := s.likedFlags(a, []*model.Story{story})
	if err != nil {
		return nil, err
	}
	return toStoryInfo(story, liked[story.ID], true), nil
}

// Mine 当前用户发布过的全部故事
func (s *StoryService) Mine(ctx context.Context, a Actor) ([]*dto.StoryInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	stories, err := s.storyRepo.ListAllByAuthor(user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.StoryInfo, len(stories))
	for i, story := range stories {
		items[i] = toStoryInfo(story, false, false)
	}
	return items, nil
}

// Create 提交故事，进入待审核状态
func (s *StoryService) Create(ctx context.Context, a Actor, req *dto.CreateStoryRequest) (*dto.StoryInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	tags := distinctTags(req.Tags)
	if err := validateStory(title, content, tags); err != nil {
		return nil, err
	}
	if err := s.validateCriteria(req.CriteriaAccepted); err != nil {
		return nil, err
	}

	if err := simulateLatency(ctx, config.Delay(s.cfg.Simulation.StorySubmitDelayMs)); err != nil {
		return nil, err
	}

	story := &model.Story{
		AuthorID:   user.ID,
		AuthorName: user.Name,
		Title:      title,
		Content:    content,
		Excerpt:    excerpt(content),
		Tags:       model.StringArray(tags),
		Status:     model.StoryStatusPending,
	}
	if err := s.storyRepo.Create(story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	count := user.StoriesCount + 1
	if _, err := a.Identity().ApplyUpdate(ctx, model.UserUpdate{StoriesCount: &count}); err != nil {
		return nil, err
	}

	s.submitForModeration(ctx, user.ID, story.ID)

	// 同步审核时状态已变化
	if fresh, err := s.storyRepo.GetByID(story.ID); err == nil {
		story = fresh
	}
	return toStoryInfo(story, false, true), nil
}

func (s *StoryService) submitForModeration(ctx context.Context, userID string, storyID int64) {
	if s.jobs == nil {
		if err := s.Moderate(ctx, storyID); err != nil {
			s.logger.Error("moderation failed", zap.Int64("story_id", storyID), zap.Error(err))
		}
		return
	}

	err := s.jobs.Push(ctx, &queue.JobMessage{
		Type:    queue.JobModerateStory,
		UserID:  userID,
		StoryID: storyID,
	})
	if err != nil {
		// 故事保持待审核，可以重新入队
		s.logger.Error("failed to enqueue moderation", zap.Int64("story_id", storyID), zap.Error(err))
	}
}

// Moderate 审核待发布的故事，不满足发布条件的直接拒绝
func (s *StoryService) Moderate(ctx context.Context, id int64) error {
	story, err := s.storyRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoryNotFound
		}
		return err
	}
	if story.Status != model.StoryStatusPending {
		return nil
	}

	if err := validateStory(story.Title, story.Content, distinctTags(story.Tags)); err != nil {
		s.logger.Info("story rejected", zap.Int64("story_id", id), zap.Error(err))
		return s.storyRepo.Reject(id)
	}

	s.logger.Info("story published", zap.Int64("story_id", id))
	return s.storyRepo.Publish(id, s.now())
}

// Like 点赞。已点过赞时直接返回，不再消耗配额
func (s *StoryService) Like(ctx context.Context, a Actor, id int64) (*dto.LikeResponse, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}

	story, err := s.published(id)
	if err != nil {
		return nil, err
	}

	// 先占住点赞记录，只有新建成功才消耗配额
	created, err := s.likeRepo.Create(user.ID, id)
	if err != nil {
		return nil, err
	}
	if !created {
		return &dto.LikeResponse{
			Liked:          true,
			LikeCount:      story.LikeCount,
			RemainingLikes: a.Entitlements().Remaining(model.DimensionLikes),
		}, nil
	}

	remaining, err := a.Entitlements().TryConsume(ctx, model.DimensionLikes, 1)
	if err != nil {
		if _, delErr := s.likeRepo.Delete(user.ID, id); delErr != nil {
			s.logger.Error("failed to roll back like",
				zap.String("user_id", user.ID),
				zap.Int64("story_id", id),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.storyRepo.IncrementLikeCount(id, 1); err != nil {
		return nil, err
	}
	story.LikeCount++

	return &dto.LikeResponse{Liked: true, LikeCount: story.LikeCount, RemainingLikes: remaining}, nil
}

// Unlike 取消点赞，已消耗的配额不退还
func (s *StoryService) Unlike(ctx context.Context, a Actor, id int64) (*dto.LikeResponse, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	story, err := s.published(id)
	if err != nil {
		return nil, err
	}

	deleted, err := s.likeRepo.Delete(user.ID, id)
	if err != nil {
		return nil, err
	}
	if deleted {
		if err := s.storyRepo.IncrementLikeCount(id, -1); err != nil {
			return nil, err
		}
		story.LikeCount--
	}

	return &dto.LikeResponse{
		Liked:          false,
		LikeCount:      story.LikeCount,
		RemainingLikes: a.Entitlements().Remaining(model.DimensionLikes),
	}, nil
}

// View 记录一次浏览。未登录、没有订阅或浏览配额用完时不计数也不报错
func (s *StoryService) View(ctx context.Context, a Actor, id int64) (*dto.ViewResponse, error) {
	story, err := s.published(id)
	if err != nil {
		return nil, err
	}

	resp := &dto.ViewResponse{ViewCount: story.ViewCount}
	if _, _, err := RequirePlan(a); err != nil {
		return resp, nil
	}

	remaining, err := a.Entitlements().TryConsume(ctx, model.DimensionViews, 1)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrNoActivePlan) {
			return resp, nil
		}
		return nil, err
	}

	if err := s.storyRepo.IncrementViewCount(id); err != nil {
		return nil, err
	}
	resp.Counted = true
	resp.ViewCount++
	resp.RemainingViews = remaining
	return resp, nil
}

// ContactAuthor 给作者发送付费消息
func (s *StoryService) ContactAuthor(ctx context.Context, a Actor, id int64, message string) (*dto.ChatInfo, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}

	story, err := s.published(id)
	if err != nil {
		return nil, err
	}
	if story.AuthorID == user.ID {
		return nil, invalidInput("不能联系自己")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidInput("消息不能为空")
	}

	chat, err := s.chats.openPaid(user, story, s.cfg.Marketplace.MessagePrice, message)
	if err != nil {
		return nil, err
	}
	return toChatInfo(chat, user.ID), nil
}

// AuthorProfile 作者主页，需要套餐包含查看用户资料
func (s *StoryService) AuthorProfile(ctx context.Context, a Actor, authorID string) (*dto.AuthorProfile, error) {
	if _, err := RequireFeature(a, model.FeatureViewUserProfiles); err != nil {
		return nil, err
	}

	stories, err := s.storyRepo.ListByAuthor(authorID)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrAuthorNotFound
	}

	profile := &dto.AuthorProfile{
		ID:           authorID,
		Name:         stories[0].AuthorName,
		StoriesCount: len(stories),
		Stories:      make([]*dto.StoryInfo, len(stories)),
	}
	for i, story := range stories {
		profile.TotalLikes += story.LikeCount
		profile.TotalViews += story.ViewCount
		profile.Stories[i] = toStoryInfo(story, false, false)
	}
	return profile, nil
}

func (s *StoryService) published(id int64) (*model.Story, error) {
	story, err := s.storyRepo.GetPublishedByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return story, nil
}

func (s *StoryService) likedFlags(a Actor, stories []*model.Story) (map[int64]bool, error) {
	user, err := RequireUser(a)
	if err != nil || len(stories) == 0 {
		return map[int64]bool{}, nil
	}
	ids := make([]int64, len(stories))
	for i, story := range stories {
		ids[i] = story.ID
	}
	return s.likeRepo.LikedStoryIDs(user.ID, ids)
}

// criteriaCount 配置的条数，超出已有标准或未配置时取全部
func (s *StoryService) criteriaCount() int {
	n := s.cfg.Marketplace.StoryCriteria
	if n <= 0 || n > len(model.StoryCriteria) {
		return len(model.StoryCriteria)
	}
	return n
}

func (s *StoryService) validateCriteria(accepted []bool) error {
	if len(accepted) != s.criteriaCount() {
		return invalidInput(fmt.Sprintf("需要确认全部 %d 条标准", s.criteriaCount()))
	}
	for _, ok := range accepted {
		if !ok {
			return invalidInput("需要确认全部标准")
		}
	}
	return nil
}

func validateStory(title, content string, tags []string) error {
	if n := utf8.RuneCountInString(title); n < minTitleRunes || n > maxTitleRunes {
		return invalidInput(fmt.Sprintf("标题长度须在 %d 到 %d 个字符之间", minTitleRunes, maxTitleRunes))
	}
	if n := utf8.RuneCountInString(content); n < minContentRunes || n > maxContentRunes {
		return invalidInput(fmt.Sprintf("正文长度须在 %d 到 %d 个字符之间", minContentRunes, maxContentRunes))
	}
	if len(tags) < minStoryTags {
		return invalidInput(fmt.Sprintf("至少需要 %d 个标签", minStoryTags))
	}
	return nil
}

func matchesSearch(story *model.Story, query string) bool {
	if strings.Contains(strings.ToLower(story.Title), query) ||
		strings.Contains(strings.ToLower(story.Excerpt), query) {
		return true
	}
	for _, tag := range story.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// excerpt 取正文开头作为摘要
func excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptRunes {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:excerptRunes])) + "..."
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
