package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/testutil"
)

func setupStoryService(t *testing.T, jobs JobQueue) (*StoryService, *gorm.DB, kv.Store) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	chats := NewChatService(repository.NewChatRepository(db), nil)
	svc := NewStoryService(
		repository.NewStoryRepository(db),
		repository.NewLikeRepository(db),
		chats,
		jobs,
		testMarketConfig(),
		nil,
	)
	return svc, db, setupRedisKV(t)
}

func validStoryRequest() *dto.CreateStoryRequest {
	return &dto.CreateStoryRequest{
		Title:            "Нет нормальной доставки обедов в офис",
		Content:          testutil.StoryContent(120),
		Tags:             []string{"Еда", "B2B"},
		CriteriaAccepted: acceptAll(),
	}
}

func TestStoryService_List(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()

	food := testutil.TestStory(t, db, "author-1", testutil.WithTitle("Доставка ЕДЫ для офиса"), testutil.WithTags("Еда", "B2B"))
	testutil.TestStory(t, db, "author-1", testutil.WithTitle("Семейный бюджет без таблиц"), testutil.WithTags("Финансы", "Семья"))
	testutil.TestStory(t, db, "author-2", testutil.WithTitle("Праздник для детей"), testutil.WithTags("Семья", "Дети"))
	testutil.TestStory(t, db, "author-2", testutil.WithStatus(model.StoryStatusPending))

	t.Run("all published", func(t *testing.T) {
		items, total, err := svc.List(ctx, nil, &dto.StoryListRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
		for _, item := range items {
			assert.Empty(t, item.Content)
			assert.False(t, item.IsLiked)
		}
	})

	t.Run("search ignores case", func(t *testing.T) {
		items, total, err := svc.List(ctx, nil, &dto.StoryListRequest{Search: "еды"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, food.ID, items[0].ID)
	})

	t.Run("search matches tags", func(t *testing.T) {
		_, total, err := svc.List(ctx, nil, &dto.StoryListRequest{Search: "семья"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("tag filter", func(t *testing.T) {
		items, total, err := svc.List(ctx, nil, &dto.StoryListRequest{Tag: "B2B"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, food.ID, items[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := svc.List(ctx, nil, &dto.StoryListRequest{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 1)

		items, _, err = svc.List(ctx, nil, &dto.StoryListRequest{Page: 5, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("liked flag", func(t *testing.T) {
		reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)
		_, err := svc.Like(ctx, reader, food.ID)
		require.NoError(t, err)

		items, _, err := svc.List(ctx, reader, &dto.StoryListRequest{Tag: "B2B"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].IsLiked)
		assert.Equal(t, 1, items[0].Likes)
	})
}

func TestStoryService_Create_Validation(t *testing.T) {
	svc, _, store := setupStoryService(t, nil)
	ctx := context.Background()
	author := signedInActor(t, store, "author@example.com")

	tests := []struct {
		name   string
		mutate func(*dto.CreateStoryRequest)
	}{
		{"short title", func(r *dto.CreateStoryRequest) { r.Title = "Коротко" }},
		{"title of spaces", func(r *dto.CreateStoryRequest) { r.Title = "   " + "abc" + strings.Repeat(" ", 10) }},
		{"short content", func(r *dto.CreateStoryRequest) { r.Content = testutil.StoryContent(99) }},
		{"one tag", func(r *dto.CreateStoryRequest) { r.Tags = []string{"Еда"} }},
		{"duplicate tags", func(r *dto.CreateStoryRequest) { r.Tags = []string{"Еда", "Еда", " "} }},
		{"missing criteria", func(r *dto.CreateStoryRequest) { r.CriteriaAccepted = r.CriteriaAccepted[:5] }},
		{"unchecked criterion", func(r *dto.CreateStoryRequest) { r.CriteriaAccepted[3] = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validStoryRequest()
			tt.mutate(req)
			_, err := svc.Create(ctx, author, req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.Create(ctx, nil, validStoryRequest())
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	assert.Equal(t, 0, author.Identity().Current().StoriesCount)
}

func TestStoryService_Create_Inline(t *testing.T) {
	svc, _, store := setupStoryService(t, nil)
	ctx := context.Background()
	author := signedInActor(t, store, "author@example.com")

	info, err := svc.Create(ctx, author, validStoryRequest())
	require.NoError(t, err)

	// 没有队列时同步审核
	assert.Equal(t, model.StoryStatusPublished, info.Status)
	assert.Equal(t, []string{"Еда", "B2B"}, info.Tags)
	assert.NotEmpty(t, info.PublishedAt)
	assert.Equal(t, 1, author.Identity().Current().StoriesCount)

	mine, err := svc.Mine(ctx, author)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, info.ID, mine[0].ID)
}

func TestStoryService_Create_Queued(t *testing.T) {
	jobs := &fakeQueue{}
	svc, _, store := setupStoryService(t, jobs)
	ctx := context.Background()
	author := signedInActor(t, store, "author@example.com")

	info, err := svc.Create(ctx, author, validStoryRequest())
	require.NoError(t, err)
	assert.Equal(t, model.StoryStatusPending, info.Status)

	pushed := jobs.Jobs()
	require.Len(t, pushed, 1)
	assert.Equal(t, queue.JobModerateStory, pushed[0].Type)
	assert.Equal(t, info.ID, pushed[0].StoryID)
	assert.Equal(t, author.Identity().Current().ID, pushed[0].UserID)

	// 待审核的故事不在列表中，作者本人可以查看
	_, total, err := svc.List(ctx, nil, &dto.StoryListRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = svc.Get(ctx, nil, info.ID)
	assert.ErrorIs(t, err, ErrStoryNotFound)

	got, err := svc.Get(ctx, author, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Title, got.Title)

	require.NoError(t, svc.Moderate(ctx, info.ID))
	got, err = svc.Get(ctx, nil, info.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StoryStatusPublished, got.Status)
}

func TestStoryService_Moderate_Rejects(t *testing.T) {
	svc, db, _ := setupStoryService(t, nil)
	ctx := context.Background()

	story := testutil.TestStory(t, db, "author-1",
		testutil.WithStatus(model.StoryStatusPending),
		testutil.WithTitle("short"))

	require.NoError(t, svc.Moderate(ctx, story.ID))

	var stored model.Story
	require.NoError(t, db.First(&stored, story.ID).Error)
	assert.Equal(t, model.StoryStatusRejected, stored.Status)

	assert.ErrorIs(t, svc.Moderate(ctx, 9999), ErrStoryNotFound)
}

func TestStoryService_Like_GateOrder(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()
	story := testutil.TestStory(t, db, "author-1")

	_, err := svc.Like(ctx, nil, story.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noPlan := signedInActor(t, store, "noplan@example.com")
	_, err = svc.Like(ctx, noPlan, story.ID)
	assert.ErrorIs(t, err, ErrNoActivePlan)

	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)
	_, err = svc.Like(ctx, reader, 9999)
	assert.ErrorIs(t, err, ErrStoryNotFound)
	assert.Equal(t, 10, reader.Entitlements().Remaining(model.DimensionLikes))
}

func TestStoryService_Like_Quota(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()
	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)

	stories := make([]*model.Story, 11)
	for i := range stories {
		stories[i] = testutil.TestStory(t, db, "author-1", testutil.WithTitle(fmt.Sprintf("История номер %02d", i)))
	}

	for i := 0; i < 10; i++ {
		resp, err := svc.Like(ctx, reader, stories[i].ID)
		require.NoError(t, err)
		assert.True(t, resp.Liked)
		assert.Equal(t, 9-i, resp.RemainingLikes)
	}

	_, err := svc.Like(ctx, reader, stories[10].ID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 10, reader.Entitlements().Subscription().LikesUsed)

	// 配额不足时不留下点赞记录
	liked, err := repository.NewLikeRepository(db).Exists(reader.Identity().Current().ID, stories[10].ID)
	require.NoError(t, err)
	assert.False(t, liked)

	story, err := repository.NewStoryRepository(db).GetByID(stories[10].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, story.LikeCount)
}

func TestStoryService_Like_Idempotent(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()
	story := testutil.TestStory(t, db, "author-1", testutil.WithCounts(4, 0))
	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)

	first, err := svc.Like(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, first.LikeCount)
	assert.Equal(t, 9, first.RemainingLikes)

	again, err := svc.Like(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.True(t, again.Liked)
	assert.Equal(t, 5, again.LikeCount)
	assert.Equal(t, 9, again.RemainingLikes)

	// 取消点赞不退配额
	undone, err := svc.Unlike(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.False(t, undone.Liked)
	assert.Equal(t, 4, undone.LikeCount)
	assert.Equal(t, 9, undone.RemainingLikes)

	relike, err := svc.Like(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, relike.RemainingLikes)
}

func TestStoryService_View(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()
	story := testutil.TestStory(t, db, "author-1", testutil.WithCounts(0, 7))

	anon, err := svc.View(ctx, nil, story.ID)
	require.NoError(t, err)
	assert.False(t, anon.Counted)
	assert.Equal(t, 7, anon.ViewCount)

	noPlan := signedInActor(t, store, "noplan@example.com")
	resp, err := svc.View(ctx, noPlan, story.ID)
	require.NoError(t, err)
	assert.False(t, resp.Counted)

	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)
	resp, err = svc.View(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.True(t, resp.Counted)
	assert.Equal(t, 8, resp.ViewCount)
	assert.Equal(t, 999, resp.RemainingViews)

	_, err = svc.View(ctx, reader, 9999)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestStoryService_View_QuotaExhausted(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()
	story := testutil.TestStory(t, db, "author-1")

	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)
	views := 1000
	require.NoError(t, reader.Entitlements().RecordUsage(ctx, model.UsageUpdate{ViewsUsed: &views}))

	resp, err := svc.View(ctx, reader, story.ID)
	require.NoError(t, err)
	assert.False(t, resp.Counted)
	assert.Equal(t, 0, resp.ViewCount)
}

func TestStoryService_ContactAuthor(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()

	noPlan := signedInActor(t, store, "noplan@example.com")
	reader := subscribedActor(t, store, "reader@example.com", model.PlanBasic)
	authorID := UserIDForEmail("author@example.com")
	story := testutil.TestStory(t, db, authorID)

	_, err := svc.ContactAuthor(ctx, nil, story.ID, "Здравствуйте")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.ContactAuthor(ctx, noPlan, story.ID, "Здравствуйте")
	assert.ErrorIs(t, err, ErrNoActivePlan)

	_, err = svc.ContactAuthor(ctx, reader, story.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	chat, err := svc.ContactAuthor(ctx, reader, story.ID, "Здравствуйте, могу помочь")
	require.NoError(t, err)
	assert.True(t, chat.IsPaid)
	assert.Equal(t, 1.5, chat.Price)
	assert.Equal(t, authorID, chat.ParticipantID)
	assert.Equal(t, "Здравствуйте, могу помочь", chat.LastMessage)

	again, err := svc.ContactAuthor(ctx, reader, story.ID, "Ещё один вопрос")
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)

	messages, err := svc.chats.Messages(ctx, reader, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].IsPaid)
	assert.False(t, messages[1].IsPaid)
	assert.True(t, messages[0].IsOwn)

	// 作者不能联系自己
	author := subscribedActor(t, store, "author@example.com", model.PlanBasic)
	_, err = svc.ContactAuthor(ctx, author, story.ID, "привет")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStoryService_AuthorProfile(t *testing.T) {
	svc, db, store := setupStoryService(t, nil)
	ctx := context.Background()

	testutil.TestStory(t, db, "author-1", testutil.WithCounts(3, 30))
	testutil.TestStory(t, db, "author-1", testutil.WithCounts(2, 20))
	testutil.TestStory(t, db, "author-1", testutil.WithStatus(model.StoryStatusPending))

	basic := subscribedActor(t, store, "basic@example.com", model.PlanBasic)
	_, err := svc.AuthorProfile(ctx, basic, "author-1")
	assert.ErrorIs(t, err, ErrFeatureNotInPlan)

	premium := subscribedActor(t, store, "premium@example.com", model.PlanPremium)
	profile, err := svc.AuthorProfile(ctx, premium, "author-1")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.StoriesCount)
	assert.Equal(t, 5, profile.TotalLikes)
	assert.Equal(t, 50, profile.TotalViews)
	assert.Equal(t, "author", profile.Name)

	_, err = svc.AuthorProfile(ctx, premium, "nobody")
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestStoryService_TagsAndCriteria(t *testing.T) {
	svc, db, _ := setupStoryService(t, nil)

	testutil.TestStory(t, db, "author-1", testutil.WithTags("Еда", "B2B"))
	testutil.TestStory(t, db, "author-1", testutil.WithTags("B2B", "Финансы"))

	tags, err := svc.Tags()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B2B", "Еда", "Финансы"}, tags)

	assert.Len(t, svc.Criteria(), 6)
}

func TestStoryService_CriteriaCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	store := setupRedisKV(t)
	ctx := context.Background()

	newService := func(n int) *StoryService {
		cfg := testMarketConfig()
		cfg.Marketplace.StoryCriteria = n
		return NewStoryService(
			repository.NewStoryRepository(db),
			repository.NewLikeRepository(db),
			NewChatService(repository.NewChatRepository(db), nil),
			nil,
			cfg,
			nil,
		)
	}

	t.Run("above list length", func(t *testing.T) {
		svc := newService(10)
		assert.Len(t, svc.Criteria(), len(model.StoryCriteria))

		author := signedInActor(t, store, "many@example.com")
		info, err := svc.Create(ctx, author, validStoryRequest())
		require.NoError(t, err)
		assert.Equal(t, model.StoryStatusPublished, info.Status)
	})

	t.Run("subset", func(t *testing.T) {
		svc := newService(3)
		criteria := svc.Criteria()
		assert.Equal(t, model.StoryCriteria[:3], criteria)

		author := signedInActor(t, store, "few@example.com")
		req := validStoryRequest()
		req.CriteriaAccepted = req.CriteriaAccepted[:3]
		_, err := svc.Create(ctx, author, req)
		require.NoError(t, err)

		_, err = svc.Create(ctx, author, validStoryRequest())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unset", func(t *testing.T) {
		assert.Len(t, newService(0).Criteria(), len(model.StoryCriteria))
	})
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "коротко", excerpt("коротко"))

	long := testutil.StoryContent(200)
	got := excerpt(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, excerptRunes+3, len([]rune(got)))
}
