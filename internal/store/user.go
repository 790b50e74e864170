package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/shared/dynamo"
)

const (
	// UserTable is the base table name for users.
	UserTable = "user"

	userKeyID = "ID"
)

type userRecord struct {
	ID            string `dynamodbav:"ID"`
	WalletAddress string `dynamodbav:"WalletAddress"`
	WalletSecret  string `dynamodbav:"WalletSecret"`
}

// UserStore reads the executing users' wallet credentials.
type UserStore struct {
	api   DynamoAPI
	table string
}

// NewUserStore creates a user store on the shared DynamoDB client.
func NewUserStore(c *dynamo.Client) *UserStore {
	return &UserStore{api: c.API(), table: c.TableName(UserTable)}
}

// Get loads one user by id.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			userKeyID: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get user", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}

	var rec userRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode user", err)
	}

	return &domain.User{
		ID:            rec.ID,
		WalletAddress: rec.WalletAddress,
		WalletSecret:  rec.WalletSecret,
	}, nil
}
