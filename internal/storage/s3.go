package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/explicae-app/explicae/internal/models"
)

// S3Client stores library exports in an S3-compatible bucket
// (DigitalOcean Spaces in production).
type S3Client struct {
	client *s3.Client
	bucket string
}

type ExportResult struct {
	Key         string
	Size        int64
	DownloadURL string
}

// NewS3Client creates a client for an S3-compatible endpoint.
func NewS3Client(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*S3Client, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for DigitalOcean Spaces
	})

	return &S3Client{
		client: client,
		bucket: bucket,
	}, nil
}

// ExportLibrary uploads a user's saved analogies as a JSON document
// and returns a presigned download link valid for one hour.
func (s *S3Client) ExportLibrary(ctx context.Context, userID string, analogies []models.Analogy) (*ExportResult, error) {
	payload, err := json.MarshalIndent(struct {
		ExportedAt time.Time        `json:"exported_at"`
		Analogies  []models.Analogy `json:"analogies"`
	}{
		ExportedAt: time.Now().UTC(),
		Analogies:  analogies,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := fmt.Sprintf("users/%s/exports/library-%s.json", userID, time.Now().UTC().Format("20060102-150405"))
	if err := s.upload(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return nil, err
	}

	url, err := s.PresignedURL(ctx, key, time.Hour)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Key:         key,
		Size:        int64(len(payload)),
		DownloadURL: url,
	}, nil
}

func (s *S3Client) upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}
	return nil
}

// PresignedURL creates a time-limited download link for a stored object.
func (s *S3Client) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)

	url, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.URL, nil
}

// ListExports lists a user's previous library exports.
func (s *S3Client) ListExports(ctx context.Context, userID string) ([]string, error) {
	prefix := fmt.Sprintf("users/%s/exports/", userID)

	result, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	var keys []string
	for _, obj := range result.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}

	return keys, nil
}
