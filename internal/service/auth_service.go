package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
	"github.com/qs3c/needvox_server/internal/pkg/jwt"
	"github.com/qs3c/needvox_server/internal/pkg/oauth"
)

var (
	ErrOAuthDisabled = errors.New("GitHub 登录未配置")
	ErrOAuthNoEmail  = errors.New("GitHub 账号没有可用邮箱")
	ErrOAuthBadState = errors.New("登录状态无效或已过期")
	ErrOAuthExchange = errors.New("GitHub 授权失败")
)

// Account 可以登录和退出的会话
type Account interface {
	Actor
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	SignOut(ctx context.Context) error
}

type AuthService struct {
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
	states      *oauth.StateStore
	logger      *zap.Logger
}

// NewAuthService githubOAuth 或 states 为 nil 时不支持 GitHub 登录
func NewAuthService(cfg *config.Config, githubOAuth *oauth.GithubOAuth, states *oauth.StateStore, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:         cfg,
		githubOAuth: githubOAuth,
		states:      states,
		logger:      logger.Named("auth"),
	}
}

// IssueToken 为会话签发 token
func (s *AuthService) IssueToken(sessionID string) (string, error) {
	return jwt.GenerateToken(sessionID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
}

// Login 邮箱登录，不校验密码
func (s *AuthService) Login(ctx context.Context, acc Account, req *dto.LoginRequest) (*dto.UserInfo, error) {
	user, err := acc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return toUserInfo(user), nil
}

// Register 邮箱注册
func (s *AuthService) Register(ctx context.Context, acc Account, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	user, err := acc.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return toUserInfo(user), nil
}

// Logout 退出登录，订阅记录保留
func (s *AuthService) Logout(ctx context.Context, acc Account) error {
	return acc.SignOut(ctx)
}

// GithubAuthURL 生成绑定到会话的 GitHub 授权地址
func (s *AuthService) GithubAuthURL(ctx context.Context, sessionID string) (string, error) {
	if s.githubOAuth == nil || s.states == nil {
		return "", ErrOAuthDisabled
	}
	state, err := s.states.GenerateState(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.GetAuthURL(state), nil
}

// GithubCallback 校验 state 并获取 GitHub 用户，返回发起登录的会话 ID
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (string, *oauth.GithubUser, error) {
	if s.githubOAuth == nil || s.states == nil {
		return "", nil, ErrOAuthDisabled
	}

	sessionID, err := s.states.ValidateState(ctx, state)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			return "", nil, ErrOAuthBadState
		}
		return "", nil, err
	}

	ghUser, err := s.githubOAuth.FetchUser(ctx, code)
	if err != nil {
		s.logger.Warn("github exchange failed", zap.Error(err))
		return "", nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	if ghUser.Email == "" {
		return "", nil, ErrOAuthNoEmail
	}
	return sessionID, ghUser, nil
}

// LoginGithub 用 GitHub 资料登录会话，头像取 GitHub 头像
func (s *AuthService) LoginGithub(ctx context.Context, acc Account, ghUser *oauth.GithubUser) (*dto.UserInfo, error) {
	user, err := acc.Register(ctx, ghUser.Email, "", ghUser.DisplayName())
	if err != nil {
		return nil, err
	}

	if ghUser.AvatarURL != "" {
		avatar := ghUser.AvatarURL
		updated, err := acc.Identity().ApplyUpdate(ctx, model.UserUpdate{Avatar: &avatar})
		if err != nil {
			return nil, err
		}
		if updated != nil {
			user = updated
		}
	}

	s.logger.Info("user signed in with github",
		zap.String("user_id", user.ID),
		zap.Int64("github_id", ghUser.ID))
	return toUserInfo(user), nil
}
