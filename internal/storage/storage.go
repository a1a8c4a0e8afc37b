package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerVault/internal/config"
)

// Store 是简历文件所需的对象存储能力，MinIO 与 S3 均实现该接口。
type Store interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
	DeleteObject(ctx context.Context, objectKey string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	ObjectURL(objectKey string) string
}

// UploadResult 描述上传完成后的对象信息。
type UploadResult struct {
	Key  string
	Size int64
	ETag string
}

// New 根据 STORAGE_DRIVER 构造对应后端。
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "minio":
		return NewMinIOClient(ctx, cfg.MinIO, cfg.Bucket)
	case "s3":
		return NewS3Client(ctx, cfg.S3, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename 去掉路径与不安全字符，仅保留 ASCII 字母数字、点、下划线与连字符。
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" || name == "/" {
		return "file"
	}
	return name
}

// ResumeObjectKey 生成 resumes/<userID>/<unixnano>_<filename> 形式的对象键。
func ResumeObjectKey(userID uuid.UUID, filename string, now time.Time) string {
	return fmt.Sprintf("resumes/%s/%d_%s", userID.String(), now.UnixNano(), SanitizeFilename(filename))
}
