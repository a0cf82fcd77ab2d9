package uploader

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"carforum/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// ErrUnsupportedType 仅允许上传图片
var ErrUnsupportedType = errors.New("images only: jpg, jpeg, png")

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Uploader 文件存储
type Uploader interface {
	UploadFile(dir string, file *multipart.FileHeader) (string, error)
}

type AliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, errors.New("oss config is missing")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		bucket: bucket,
		config: cfg,
	}, nil
}

// ObjectKey 生成对象名: dir/YYYYMMDD/uuid.ext
func ObjectKey(dir, filename string, now time.Time) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("%s/%s/%s%s", dir, now.Format("20060102"), uuid.New().String(), ext), nil
}

func (u *AliyunOSSUploader) UploadFile(dir string, file *multipart.FileHeader) (string, error) {
	key, err := ObjectKey(dir, file.Filename, time.Now())
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := u.bucket.PutObject(key, src); err != nil {
		return "", err
	}

	// bucket 为 public-read，直接拼接公网地址
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}

// FromConfig 未配置 OSS 时返回 nil，调用方按依赖不可用处理
func FromConfig(cfg config.OSSConfig) (Uploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, nil
	}
	u, err := NewAliyunOSSUploader(cfg)
	if err != nil {
		return nil, err
	}
	return u, nil
}
