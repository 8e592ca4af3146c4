package oss

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/needvox_server/config"
)

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// UploadAvatar 上传用户头像，返回访问 URL
func (c *Client) UploadAvatar(userID string, data []byte, ext string) (string, error) {
	objectKey := AvatarKey(userID, ext, time.Now())

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(ContentType(ext)))
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// DeleteByURL 删除本桶内的文件，不属于本桶的 URL 直接忽略
func (c *Client) DeleteByURL(url string) error {
	key, ok := c.ExtractObjectKey(url)
	if !ok {
		return nil
	}
	if err := c.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, c.client.Config.Endpoint, objectKey)
}

// ExtractObjectKey 从本桶生成的 URL 中取出 object key
func (c *Client) ExtractObjectKey(url string) (string, bool) {
	prefixes := []string{fmt.Sprintf("https://%s.%s/", c.bucketName, c.client.Config.Endpoint)}
	if c.cdnDomain != "" {
		prefixes = append(prefixes, fmt.Sprintf("https://%s/", c.cdnDomain))
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) && len(url) > len(prefix) {
			return url[len(prefix):], true
		}
	}
	return "", false
}

// AvatarKey avatars/<userID>/<unix><ext>
func AvatarKey(userID, ext string, at time.Time) string {
	return path.Join("avatars", userID, fmt.Sprintf("%d%s", at.Unix(), ext))
}

// ContentType 根据扩展名获取 Content-Type
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
