package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("参数错误")
	ErrStoryNotFound      = errors.New("故事不存在")
	ErrCollectionNotFound = errors.New("合集不存在")
	ErrChatNotFound       = errors.New("对话不存在")
	ErrAuthorNotFound     = errors.New("作者不存在")
	ErrForbidden          = errors.New("无权操作")
	ErrStorageDisabled    = errors.New("对象存储未配置")
)

// invalidInput 带具体原因的参数错误，errors.Is 仍可匹配 ErrInvalidInput
func invalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
