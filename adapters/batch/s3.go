package batch

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// S3Storage stages batch input in S3
type S3Storage struct {
	client s3API
	region string
	logger *zap.Logger
}

// NewS3Storage creates an S3 backed ObjectStorage
func NewS3Storage(cfg aws.Config, logger *zap.Logger) *S3Storage {
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		region: cfg.Region,
		logger: logger,
	}
}

func (s *S3Storage) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	s.logger.Info("Bucket created", zap.String("bucket", bucket), zap.String("region", s.region))
	return nil
}

func (s *S3Storage) Upload(ctx context.Context, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Info("File uploaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size()))
	return nil
}

func (s *S3Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Storage) DeleteBucket(ctx context.Context, bucket string) error {
	if _, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	s.logger.Info("Bucket deleted", zap.String("bucket", bucket))
	return nil
}

var _ repositories.ObjectStorage = (*S3Storage)(nil)
