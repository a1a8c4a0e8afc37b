package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"careerVault/internal/config"
)

// S3Client 使用 AWS SDK v2 访问 S3（或兼容网关）。
type S3Client struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	region     string
	endpoint   string
}

// NewS3Client 构造 S3 客户端。未配置静态密钥时沿用 SDK 默认凭证链。
func NewS3Client(ctx context.Context, cfg config.S3Config, bucket string) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: bucket,
		region:     cfg.Region,
		endpoint:   endpoint,
	}, nil
}

func (c *S3Client) UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	out, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucketName),
		Key:           aws.String(objectKey),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectKey, err)
	}
	return &UploadResult{Key: objectKey, Size: size, ETag: aws.ToString(out.ETag)}, nil
}

func (c *S3Client) GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return req.URL, nil
}

// ObjectURL 返回 virtual-hosted 风格地址；自定义 endpoint 时使用 path-style。
func (c *S3Client) ObjectURL(objectKey string) string {
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucketName, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucketName, objectKey)
}

// DeleteObject 删除指定对象；S3 对不存在的 key 同样返回成功。
func (c *S3Client) DeleteObject(ctx context.Context, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil
	}
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("delete object %q: %w", objectKey, err)
	}
	return nil
}
