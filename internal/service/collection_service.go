package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/repository"
)

// AI 合集挑选故事的数量范围
const (
	aiMinStories      = 5
	aiMaxStories      = 20
	aiTitlePromptRune = 30
)

type CollectionService struct {
	collectionRepo *repository.CollectionRepository
	storyRepo      *repository.StoryRepository
	jobs           JobQueue
	cfg            *config.Config
	logger         *zap.Logger
	now            func() time.Time
}

func NewCollectionService(
	collectionRepo *repository.CollectionRepository,
	storyRepo *repository.StoryRepository,
	jobs JobQueue,
	cfg *config.Config,
	logger *zap.Logger,
) *CollectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionService{
		collectionRepo: collectionRepo,
		storyRepo:      storyRepo,
		jobs:           jobs,
		cfg:            cfg,
		logger:         logger.Named("collection"),
		now:            time.Now,
	}
}

// List 当前用户的合集
func (s *CollectionService) List(ctx context.Context, a Actor) ([]*dto.CollectionInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}

	collections, err := s.collectionRepo.ListByOwner(user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CollectionInfo, len(collections))
	for i, c := range collections {
		items[i] = toCollectionInfo(c)
	}
	return items, nil
}

// Create 手动创建合集，消耗一次合集配额
func (s *CollectionService) Create(ctx context.Context, a Actor, req *dto.CreateCollectionRequest) (*dto.CollectionInfo, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidInput("合集名称不能为空")
	}
	storyIDs, err := s.resolveStories(req.StoryIDs)
	if err != nil {
		return nil, err
	}

	if _, err := a.Entitlements().TryConsume(ctx, model.DimensionCollections, 1); err != nil {
		return nil, err
	}

	collection := &model.Collection{
		ID:           ulid.Make().String(),
		OwnerID:      user.ID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Status:       model.CollectionStatusReady,
		StoryIDs:     storyIDs,
		StoriesCount: len(storyIDs),
	}
	if err := s.collectionRepo.Create(collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return toCollectionInfo(collection), nil
}

// CreateAI 按用户描述的技能生成合集，消耗一次 AI 合集配额
func (s *CollectionService) CreateAI(ctx context.Context, a Actor, req *dto.CreateAICollectionRequest) (*dto.CollectionInfo, error) {
	user, _, err := RequirePlan(a)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, invalidInput("请描述你的能力和技能")
	}

	if _, err := a.Entitlements().TryConsume(ctx, model.DimensionAICollections, 1); err != nil {
		return nil, err
	}

	collection := &model.Collection{
		ID:            ulid.Make().String(),
		OwnerID:       user.ID,
		Title:         aiCollectionTitle(prompt),
		Description:   "Автоматически созданная подборка на основе ваших навыков: " + prompt,
		IsAIGenerated: true,
		Prompt:        prompt,
		Status:        model.CollectionStatusGenerating,
		StoryIDs:      model.StringArray{},
	}
	if err := s.collectionRepo.Create(collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	if s.jobs == nil {
		if err := s.Generate(ctx, collection.ID); err != nil {
			return nil, err
		}
	} else {
		err := s.jobs.Push(ctx, &queue.JobMessage{
			Type:         queue.JobGenerateCollection,
			UserID:       user.ID,
			CollectionID: collection.ID,
			Prompt:       prompt,
		})
		if err != nil {
			s.logger.Error("failed to enqueue collection", zap.String("collection_id", collection.ID), zap.Error(err))
			_ = s.collectionRepo.UpdateStatus(collection.ID, model.CollectionStatusFailed)
			return nil, err
		}
	}

	fresh, err := s.collectionRepo.GetByID(collection.ID)
	if err != nil {
		return nil, err
	}
	return toCollectionInfo(fresh), nil
}

// Generate 为 AI 合集挑选故事，由后台任务调用
func (s *CollectionService) Generate(ctx context.Context, id string) error {
	collection, err := s.collectionRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCollectionNotFound
		}
		return err
	}
	if collection.Status != model.CollectionStatusGenerating {
		return nil
	}

	if err := simulateLatency(ctx, config.Delay(s.cfg.Simulation.AICollectionDelayMs)); err != nil {
		return err
	}

	stories, err := s.storyRepo.ListPublished("", repository.StorySortLikes)
	if err != nil {
		if markErr := s.collectionRepo.UpdateStatus(id, model.CollectionStatusFailed); markErr != nil {
			s.logger.Error("failed to mark collection failed", zap.String("collection_id", id), zap.Error(markErr))
		}
		return err
	}

	picked := pickStories(stories, collection.Prompt)
	ids := make(model.StringArray, len(picked))
	for i, story := range picked {
		ids[i] = strconv.FormatInt(story.ID, 10)
	}

	collection.StoryIDs = ids
	collection.StoriesCount = len(ids)
	collection.Status = model.CollectionStatusReady
	if err := s.collectionRepo.Update(collection); err != nil {
		return err
	}

	s.logger.Info("ai collection ready",
		zap.String("collection_id", id),
		zap.Int("stories", len(ids)))
	return nil
}

// Download 导出合集及其中的故事，需要套餐包含下载权益
func (s *CollectionService) Download(ctx context.Context, a Actor, id string) (*dto.CollectionExport, error) {
	user, err := RequireFeature(a, model.FeatureDownloadCollections)
	if err != nil {
		return nil, err
	}

	collection, err := s.owned(id, user.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(collection.StoryIDs))
	for _, raw := range collection.StoryIDs {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, n)
		}
	}
	stories, err := s.storyRepo.GetPublishedByIDs(ids)
	if err != nil {
		return nil, err
	}

	export := &dto.CollectionExport{
		Collection: toCollectionInfo(collection),
		Stories:    make([]*dto.StoryInfo, len(stories)),
		ExportedAt: formatTime(s.now()),
	}
	for i, story := range stories {
		export.Stories[i] = toStoryInfo(story, false, true)
	}
	return export, nil
}

// Delete 删除自己的合集，已消耗的配额不退还
func (s *CollectionService) Delete(ctx context.Context, a Actor, id string) error {
	user, err := RequireUser(a)
	if err != nil {
		return err
	}

	if _, err := s.owned(id, user.ID); err != nil {
		return err
	}
	return s.collectionRepo.Delete(id)
}

func (s *CollectionService) owned(id, userID string) (*model.Collection, error) {
	collection, err := s.collectionRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	if collection.OwnerID != userID {
		return nil, ErrForbidden
	}
	return collection, nil
}

// resolveStories 校验故事 ID 都指向已发布的故事
func (s *CollectionService) resolveStories(raw []string) (model.StringArray, error) {
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for _, r := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		if err != nil {
			return nil, invalidInput("故事 ID 无效: " + r)
		}
		if !seen[n] {
			seen[n] = true
			ids = append(ids, n)
		}
	}

	stories, err := s.storyRepo.GetPublishedByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(stories) != len(ids) {
		return nil, ErrStoryNotFound
	}

	out := make(model.StringArray, len(ids))
	for i, n := range ids {
		out[i] = strconv.FormatInt(n, 10)
	}
	return out, nil
}

func aiCollectionTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > aiTitlePromptRune {
		runes = runes[:aiTitlePromptRune]
	}
	return "ИИ-подборка: " + string(runes) + "..."
}

// pickStories 按提示词命中次数挑选故事，命中不足时用点赞最多的补齐。
// stories 需已按点赞数降序
func pickStories(stories []*model.Story, prompt string) []*model.Story {
	keywords := promptKeywords(prompt)

	type scored struct {
		story *model.Story
		score int
	}
	var hits []scored
	used := make(map[int64]bool)
	for _, story := range stories {
		if score := keywordScore(story, keywords); score > 0 {
			hits = append(hits, scored{story: story, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	picked := make([]*model.Story, 0, aiMaxStories)
	for _, h := range hits {
		if len(picked) == aiMaxStories {
			break
		}
		picked = append(picked, h.story)
		used[h.story.ID] = true
	}
	for _, story := range stories {
		if len(picked) >= aiMinStories {
			break
		}
		if !used[story.ID] {
			picked = append(picked, story)
			used[story.ID] = true
		}
	}
	return picked
}

func promptKeywords(prompt string) []string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 3 {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

func keywordScore(story *model.Story, keywords []string) int {
	text := strings.ToLower(story.Title + " " + story.Excerpt + " " + strings.Join(story.Tags, " "))
	score := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			score++
		}
	}
	return score
}
