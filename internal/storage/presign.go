/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage turns object storage references into fetchable URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignTTL bounds how long a presigned media URL stays valid.
const DefaultPresignTTL = 15 * time.Minute

// Presigner returns an HTTPS URL for an object.
type Presigner interface {
	Presign(ctx context.Context, bucket, key string) (string, error)
}

// S3Config configures the S3 presigner.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	PublicBaseURL   string // Optional CDN URL; objects are addressed directly instead of presigned
	UsePathStyle    bool
	TTL             time.Duration
}

// S3Presigner presigns GetObject requests.
type S3Presigner struct {
	client        *s3.PresignClient
	publicBaseURL string
	ttl           time.Duration
}

// NewS3Presigner loads AWS configuration and builds a presign client.
// Static credentials are used when given, otherwise the default chain.
func NewS3Presigner(ctx context.Context, cfg S3Config) (*S3Presigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &S3Presigner{
		client:        s3.NewPresignClient(client),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:           ttl,
	}, nil
}

// Presign implements Presigner.
func (p *S3Presigner) Presign(ctx context.Context, bucket, key string) (string, error) {
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + strings.TrimLeft(key, "/"), nil
	}

	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// ParseS3URL splits s3://bucket/key. ok is false for any other scheme.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
