package storage

import (
	"context"
	"fmt"
	"genarchive/internal/config"
	"strings"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
	// TypeGCS 表示 Google Cloud Storage（Firebase Storage 的底层存储）。
	TypeGCS = "gcs"
)

// SaveOptions 控制存储后端如何持久化文件。
//
// Category 用于组织对象路径，Extension 提示首选的文件扩展名（不含前导点），
// BaseName 为文件名主体；为空时使用纳秒时间戳。
type SaveOptions struct {
	Category  string
	Extension string
	BaseName  string
}

// Storage 持久化二进制数据并返回对象键，PublicURL 把对象键转换为稳定的公开地址。
type Storage interface {
	Save(ctx context.Context, data []byte, opts SaveOptions) (string, error)
	PublicURL(key string) string
}

// LocalFileServer 由可通过本进程 HTTP 直接提供文件的存储驱动实现。
// PublicBase 为绝对地址时文件由外部服务提供，本进程不挂载。
type LocalFileServer interface {
	LocalBaseDir() string
	PublicBase() string
}

// NewStorage 根据配置实例化存储后端。
func NewStorage(cfg config.Config) (Storage, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	case TypeGCS:
		return NewGCSStorage(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
