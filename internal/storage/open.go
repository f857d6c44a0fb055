package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// timeNow is overridable in tests.
var timeNow = time.Now

// AWSOptions carries the credential pair and region supplied by the CI environment.
type AWSOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional S3-compatible endpoint
}

// LoadAWSConfig builds an aws.Config. Static credentials are used when both
// keys are set, otherwise the default provider chain applies.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// Open returns the Bucket addressed by rawURL:
//
//	s3://bucket-name
//	file:///var/tmp/drafts
//	mem://name
func Open(ctx context.Context, rawURL string, opts AWSOptions) (Bucket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "s3", "":
		name := u.Host
		if u.Scheme == "" {
			name = rawURL
		}
		if name == "" {
			return nil, fmt.Errorf("bucket url %q has no bucket name", rawURL)
		}
		cfg, err := LoadAWSConfig(ctx, opts)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
				o.UsePathStyle = true
			}
		})
		return NewS3Bucket(client, name), nil
	case "file":
		return NewFSBucket(u.Path)
	case "mem":
		return NewMemoryBucket(u.Host), nil
	default:
		return nil, fmt.Errorf("unsupported bucket scheme %q", u.Scheme)
	}
}
