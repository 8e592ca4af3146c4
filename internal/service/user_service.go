package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/model"
	"github.com/qs3c/needvox_server/internal/model/dto"
)

const maxAvatarBytes = 2 << 20

var avatarExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// AvatarStorage 头像对象存储
type AvatarStorage interface {
	UploadAvatar(userID string, data []byte, ext string) (string, error)
	DeleteByURL(url string) error
}

type UserService struct {
	avatars AvatarStorage
	logger  *zap.Logger
}

// NewUserService avatars 为 nil 时不支持上传头像
func NewUserService(avatars AvatarStorage, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		avatars: avatars,
		logger:  logger.Named("user"),
	}
}

// Profile 个人中心：用户信息和订阅用量
func (s *UserService) Profile(ctx context.Context, a Actor) (*dto.ProfileResponse, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}
	return &dto.ProfileResponse{
		User:         toUserInfo(user),
		Subscription: toSubscriptionInfo(a.Entitlements()),
	}, nil
}

// UpdateProfile 修改显示名
func (s *UserService) UpdateProfile(ctx context.Context, a Actor, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	if _, err := RequireUser(a); err != nil {
		return nil, err
	}

	var update model.UserUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidInput("名字不能为空")
		}
		update.Name = &name
	}

	user, err := a.Identity().ApplyUpdate(ctx, update)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return toUserInfo(user), nil
}

// UploadAvatar 上传头像并替换旧头像
func (s *UserService) UploadAvatar(ctx context.Context, a Actor, file io.Reader, filename string) (*dto.UserInfo, error) {
	user, err := RequireUser(a)
	if err != nil {
		return nil, err
	}
	if s.avatars == nil {
		return nil, ErrStorageDisabled
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !avatarExts[ext] {
		return nil, invalidInput("不支持的图片格式: " + ext)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalidInput("文件为空")
	}
	if len(data) > maxAvatarBytes {
		return nil, invalidInput("头像不能超过 2MB")
	}

	url, err := s.avatars.UploadAvatar(user.ID, data, ext)
	if err != nil {
		return nil, err
	}

	updated, err := a.Identity().ApplyUpdate(ctx, model.UserUpdate{Avatar: &url})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUnauthenticated
	}

	if user.Avatar != nil && *user.Avatar != url {
		if err := s.avatars.DeleteByURL(*user.Avatar); err != nil {
			s.logger.Warn("failed to delete old avatar", zap.String("url", *user.Avatar), zap.Error(err))
		}
	}
	return toUserInfo(updated), nil
}
