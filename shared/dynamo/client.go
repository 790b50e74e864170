// Package dynamo provides the DynamoDB client shared by the API service, the
// worker, and the reconciliation job.
package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Config holds DynamoDB connection configuration. Endpoint is only set for
// local or S3-compatible test targets; credentials fall back to the default
// provider chain when unset.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TablePrefix     string
}

// Client wraps the DynamoDB API together with the deployment's table-name
// prefix.
type Client struct {
	api    *dynamodb.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a DynamoDB client and verifies connectivity.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	logger.Info("Connecting to DynamoDB",
		slog.String("region", config.Region),
		slog.String("table_prefix", config.TablePrefix),
	)

	// Verify connectivity before handing the client out.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := api.ListTables(pingCtx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		logger.Error("Failed to reach DynamoDB",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to reach DynamoDB: %w", err)
	}

	logger.Info("DynamoDB connection established")

	return &Client{
		api:    api,
		config: config,
		logger: logger,
	}, nil
}

// API returns the underlying DynamoDB client.
func (c *Client) API() *dynamodb.Client {
	return c.api
}

// TableName prefixes a base table name with the deployment prefix.
func (c *Client) TableName(base string) string {
	return c.config.TablePrefix + base
}
