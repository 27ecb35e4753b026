// Package s3 opens workbook objects from an S3-compatible backend (AWS S3
// or MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const Scheme = "s3://"

var ErrInvalidURI = errors.New("invalid s3 uri")

// Store reads objects from any bucket the credentials can reach.
type Store struct {
	client *s3.Client
}

// Config holds explicit construction parameters. Credentials come from the
// default AWS chain (AWS_ACCESS_KEY_ID, shared config, instance role).
type Config struct {
	Region    string
	Endpoint  string // optional; enables a custom endpoint (e.g. MinIO)
	PathStyle bool
}

// New creates an S3 store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client}, nil
}

// Open streams an object. The caller closes the body.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// IsURI reports whether location points at S3.
func IsURI(location string) bool {
	return strings.HasPrefix(location, Scheme)
}

// ParseURI splits "s3://bucket/path/to/key" into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}
