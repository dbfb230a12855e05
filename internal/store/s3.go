package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/config"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// S3APIClient is the narrow S3 interface used by the result store. It embeds
// ListObjectsV2APIClient so the SDK paginator can be used directly.
type S3APIClient interface {
	s3svc.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3svc.PutObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3svc.GetObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3svc.HeadObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3svc.DeleteObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.DeleteObjectOutput, error)
}

// NewS3Client loads the shared AWS config for cfg.Profile and returns an S3
// client. A set Endpoint switches to path-style addressing for S3-compatible
// services such as MinIO or LocalStack.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3svc.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	return s3svc.NewFromConfig(awsCfg, func(o *s3svc.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store stores each result as <prefix><id>.json in a bucket.
type S3Store struct {
	client S3APIClient
	bucket string
	prefix string
}

// NewS3Store returns a store writing under prefix in bucket.
func NewS3Store(client S3APIClient, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + ".json"
}

func (s *S3Store) Store(ctx context.Context, r *models.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return errors.New("store: result must have an id")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", r.ID, err)
	}
	_, err = s.client.PutObject(ctx, &s3svc.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(r.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put analysis %s: %w", r.ID, err)
	}
	return nil
}

func (s *S3Store) Fetch(ctx context.Context, id string) (*models.AnalysisResult, error) {
	out, err := s.client.GetObject(ctx, &s3svc.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, analysis.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read analysis %s: %w", id, err)
	}
	return decodeResult(id, data)
}

// List reads every object under the prefix and filters in process.
func (s *S3Store) List(ctx context.Context, filter analysis.ListFilter) ([]*models.AnalysisResult, error) {
	var all []*models.AnalysisResult

	p := s3svc.NewListObjectsV2Paginator(s.client, &s3svc.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list analyses: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(key, s.prefix), ".json")
			r, err := s.Fetch(ctx, id)
			if errors.Is(err, analysis.ErrNotFound) {
				// Deleted between list and get.
				continue
			}
			if err != nil {
				return nil, err
			}
			all = append(all, r)
		}
	}

	return filter.Apply(all), nil
}

// Delete checks existence first since S3 DeleteObject succeeds for missing keys.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.HeadObject(ctx, &s3svc.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return analysis.ErrNotFound
		}
		return fmt.Errorf("head analysis %s: %w", id, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3svc.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	return nil
}
