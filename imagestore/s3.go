package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mosquitoalert/mosquito-alert-api/config"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in an S3 compatible bucket (R2, MinIO, AWS) served
// from PublicURL
type S3Store struct {
	client    objectAPI
	bucket    string
	publicURL string
}

// NewS3Store builds a store from conf
func NewS3Store(conf config.S3) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}
	opts := s3.Options{
		Credentials: credentials.NewStaticCredentialsProvider(
			conf.AccessKeyID,
			conf.SecretAccessKey,
			"",
		),
		Region: conf.Region,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Store{
		client:    s3.New(opts),
		bucket:    conf.Bucket,
		publicURL: strings.TrimRight(conf.PublicURL, "/"),
	}, nil
}

// Put implements Store
func (s *S3Store) Put(ctx context.Context, img Image) (Stored, error) {
	key := fmt.Sprintf("reports/%s/%s.%s", time.Now().UTC().Format("2006/01"), uuid.NewString(), img.Extension)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return Stored{}, fmt.Errorf("failed to put object: %w", err)
	}
	return Stored{URL: fmt.Sprintf("%s/%s", s.publicURL, key), Key: key}, nil
}

// Remove implements Store
func (s *S3Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
