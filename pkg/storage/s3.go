package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/zentra/emojigen/config"
)

// S3Store talks to any S3-compatible service (Supabase storage, R2, AWS).
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Store(cfg *config.Config) (*S3Store, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	endpoint := endpointURL(cfg.Storage.Endpoint, cfg.Storage.UseSSL)
	client := s3.New(s3.Options{
		Region:       cfg.Storage.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		UsePathStyle: true,
	})

	publicURL := cfg.Storage.PublicURL
	if publicURL == "" {
		publicURL = endpoint
	}

	log.Info().Str("endpoint", endpoint).Str("bucket", cfg.Storage.Bucket).Msg("Configured S3 storage")

	return &S3Store{
		client:    client,
		bucket:    cfg.Storage.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(opts.ContentType),
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return publicObjectURL(s.publicURL, s.bucket, key), nil
}

func (s *S3Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
