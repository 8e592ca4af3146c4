package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/api/handler"
	"github.com/qs3c/needvox_server/internal/api/middleware"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/session"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	storyHandler        *handler.StoryHandler
	collectionHandler   *handler.CollectionHandler
	chatHandler         *handler.ChatHandler
	walletHandler       *handler.WalletHandler
	subscriptionHandler *handler.SubscriptionHandler
	wsHandler           *handler.WebSocketHandler
	sessions            *session.Manager
	cfg                 *config.Config
	logger              *zap.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	storyHandler *handler.StoryHandler,
	collectionHandler *handler.CollectionHandler,
	chatHandler *handler.ChatHandler,
	walletHandler *handler.WalletHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	wsHandler *handler.WebSocketHandler,
	sessions *session.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		storyHandler:        storyHandler,
		collectionHandler:   collectionHandler,
		chatHandler:         chatHandler,
		walletHandler:       walletHandler,
		subscriptionHandler: subscriptionHandler,
		wsHandler:           wsHandler,
		sessions:            sessions,
		cfg:                 cfg,
		logger:              logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(r.logger))
	engine.Use(middleware.RequestLogger(r.logger.Named("http")))
	engine.Use(middleware.CORS(r.cfg.CORS))

	secret := r.cfg.JWT.Secret
	auth := middleware.Auth(secret, r.sessions)
	optional := middleware.OptionalAuth(secret, r.sessions)

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 会话与认证
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/session", r.authHandler.CreateSession)
			authGroup.GET("/github/callback", r.authHandler.GithubCallback)
		}
		authSession := api.Group("/auth", auth)
		{
			authSession.POST("/register", r.authHandler.Register)
			authSession.POST("/login", r.authHandler.Login)
			authSession.POST("/logout", r.authHandler.Logout)
			authSession.GET("/github", r.authHandler.GithubAuth)
		}

		// 任务通知，token 走 query 参数
		if r.wsHandler != nil {
			api.GET("/ws", r.wsHandler.Handle)
		}

		// 公开接口 - 套餐目录
		api.GET("/subscription/plans", r.subscriptionHandler.Plans)

		// 故事 - 公开读取（可选认证）
		storiesPublic := api.Group("/stories", optional)
		{
			storiesPublic.GET("", r.storyHandler.List)
			storiesPublic.GET("/tags", r.storyHandler.Tags)
			storiesPublic.GET("/criteria", r.storyHandler.Criteria)
			storiesPublic.GET("/:id", r.storyHandler.Get)
			storiesPublic.POST("/:id/view", r.storyHandler.View)
		}

		// 需要登录的接口
		authenticated := api.Group("", auth, middleware.RequireLogin())
		{
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
			}

			subscription := authenticated.Group("/subscription")
			{
				subscription.GET("", r.subscriptionHandler.Current)
				subscription.POST("", r.subscriptionHandler.Subscribe)
				subscription.DELETE("", r.subscriptionHandler.Cancel)
			}

			stories := authenticated.Group("/stories")
			{
				stories.GET("/mine", r.storyHandler.Mine)
				stories.POST("", r.storyHandler.Create)
				stories.POST("/:id/like", r.storyHandler.Like)
				stories.DELETE("/:id/like", r.storyHandler.Unlike)
				stories.POST("/:id/contact", r.storyHandler.ContactAuthor)
			}

			authenticated.GET("/authors/:id",
				middleware.RequireFeature(model.FeatureViewUserProfiles),
				r.storyHandler.AuthorProfile)

			collections := authenticated.Group("/collections")
			{
				collections.GET("", r.collectionHandler.List)
				collections.POST("", r.collectionHandler.Create)
				collections.POST("/ai", r.collectionHandler.CreateAI)
				collections.GET("/:id/download", r.collectionHandler.Download)
				collections.DELETE("/:id", r.collectionHandler.Delete)
			}

			chats := authenticated.Group("/chats")
			{
				chats.GET("", r.chatHandler.List)
				chats.GET("/:id/messages", r.chatHandler.Messages)
				chats.POST("/:id/messages", r.chatHandler.Send)
			}

			wallet := authenticated.Group("/wallet")
			{
				wallet.GET("", r.walletHandler.Summary)
				wallet.POST("/methods", r.walletHandler.Connect)
			}
		}
	}

	return engine
}
