package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/platform/envutil"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// Store is the object-storage interface the pipeline consumes. Keys are
// caller-chosen and stable, so re-running a worker overwrites the same
// object instead of accumulating copies.
type Store interface {
	Upload(ctx context.Context, content []byte, key, contentType string) (string, error)
	UploadFromURL(ctx context.Context, srcURL, key string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Timeout         time.Duration
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("S3_TIMEOUT_SECONDS", 60)
	return Config{
		EndpointURL:     strings.TrimSpace(os.Getenv("S3_ENDPOINT_URL")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		BucketName:      envutil.String("S3_BUCKET_NAME", "aik-back"),
		Region:          envutil.String("S3_REGION", "us-east-1"),
		Timeout:         time.Duration(timeoutSec) * time.Second,
	}
}

func NewFromEnv(ctx context.Context, log *logger.Logger) (Store, error) {
	return New(ctx, log, ConfigFromEnv())
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("missing S3_ACCESS_KEY_ID / S3_SECRET_ACCESS_KEY")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("missing S3_BUCKET_NAME")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// minio-style endpoints require path addressing
			o.UsePathStyle = true
		}
	})

	return &store{
		log:       log.With("service", "S3Store"),
		cfg:       cfg,
		client:    client,
		presigner: awss3.NewPresignClient(client),
		httpc:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type store struct {
	log       *logger.Logger
	cfg       Config
	client    *awss3.Client
	presigner *awss3.PresignClient
	httpc     *http.Client
}

func (s *store) Upload(ctx context.Context, content []byte, key, contentType string) (string, error) {
	if key == "" {
		return "", apperr.Validation("missing_key", "object key required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Storage("file_upload_error", err)
	}
	return key, nil
}

func (s *store) UploadFromURL(ctx context.Context, srcURL, key string) (string, error) {
	if srcURL == "" {
		return "", apperr.Validation("missing_url", "source url required")
	}
	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return "", apperr.Storage("file_upload_error", err)
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", apperr.Network("file_download_failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.Storage("file_upload_error", fmt.Errorf("download from url: http %d", resp.StatusCode))
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Network("file_download_failed", err)
	}
	contentType := resp.Header.Get("Content-Type")
	return s.Upload(ctx, content, key, contentType)
}

func (s *store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Storage("file_not_found", err)
		}
		return nil, apperr.Storage("file_storage_error", err)
	}
	defer out.Body.Close()
	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperr.Storage("file_storage_error", err)
	}
	return content, nil
}

func (s *store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	req, err := s.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperr.Storage("file_storage_error", err)
	}
	return req.URL, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperr.Storage("file_storage_error", err)
	}
	return nil
}

func (s *store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, apperr.Storage("file_storage_error", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}
