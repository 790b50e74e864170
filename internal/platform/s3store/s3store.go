// Package s3store implements object storage access on top of S3. The API
// service uploads media and metadata documents here during prepare; the
// worker downloads CSV files for bulk import.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/canvaslab/nft-server/internal/apperr"
)

// Config holds S3 connection configuration.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicBaseURL is prepended to object keys to form the URL handed to
	// clients. Defaults to the virtual-hosted S3 URL when empty.
	PublicBaseURL  string
	ForcePathStyle bool
}

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client uploads and downloads objects in a single bucket.
type Client struct {
	api     S3API
	bucket  string
	baseURL string
}

// NewClient builds an S3 client from configuration.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
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
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Client{api: api, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Upload stores body under key and returns the public URL of the object.
func (c *Client) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, fmt.Sprintf("upload %s", key), err)
	}

	return c.baseURL + "/" + key, nil
}

// URL returns the public URL of an object without touching storage.
func (c *Client) URL(key string) string {
	return c.baseURL + "/" + key
}

// Download fetches the object under key.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("download %s", key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("read %s", key), err)
	}

	return data, nil
}
