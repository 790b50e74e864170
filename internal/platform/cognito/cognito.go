// Package cognito resolves executor ids to notification addresses.
package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/canvaslab/nft-server/internal/apperr"
)

// Config holds Cognito user pool configuration.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UserPoolID      string
}

// CognitoAPI is the subset of the identity provider client used here.
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
}

// Resolver looks up user attributes in a single user pool.
type Resolver struct {
	api        CognitoAPI
	userPoolID string
}

// NewResolver builds a Cognito resolver from configuration.
func NewResolver(ctx context.Context, cfg *Config) (*Resolver, error) {
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
		return nil, apperr.Wrap(apperr.KindInternal, "load AWS config", err)
	}

	api := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Resolver{api: api, userPoolID: cfg.UserPoolID}, nil
}

// EmailOf returns the email attribute of the user. An unknown user id or a
// user without an email attribute maps to not-found.
func (r *Resolver) EmailOf(ctx context.Context, userID string) (string, error) {
	out, err := r.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(r.userPoolID),
		Username:   aws.String(userID),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
		}
		return "", apperr.Wrap(apperr.KindInternal, "resolve user email", err)
	}

	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "email" {
			return aws.ToString(attr.Value), nil
		}
	}

	return "", fmt.Errorf("user %s has no email attribute: %w", userID, apperr.ErrNotFound)
}
