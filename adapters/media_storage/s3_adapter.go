package media_storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/pkg/logger"
)

// objectAPI is the subset of *s3.Client the adapter calls.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Adapter struct {
	client  objectAPI
	bucket  string
	baseURL string
}

func NewS3Adapter(ctx context.Context, cfg config.Config, log logger.Logger) (service.Uploader, error) {
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket has not config")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKey,
			cfg.S3.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	log.Info("S3 uploader initialized")
	return &s3Adapter{
		client:  client,
		bucket:  cfg.S3.Bucket,
		baseURL: objectBaseURL(cfg),
	}, nil
}

func objectBaseURL(cfg config.Config) string {
	if cfg.S3.Endpoint != "" {
		return strings.TrimRight(cfg.S3.Endpoint, "/") + "/" + cfg.S3.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3.Bucket, cfg.S3.Region)
}

func objectKey(folder, publicID string) string {
	if folder == "" {
		return publicID
	}
	return strings.Trim(folder, "/") + "/" + publicID
}

func (a *s3Adapter) Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error) {
	key := objectKey(folder, publicID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3 object: %w", err)
	}
	return a.baseURL + "/" + key, nil
}

func (a *s3Adapter) Delete(ctx context.Context, folder string, publicID string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(folder, publicID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3 object: %w", err)
	}
	return nil
}
