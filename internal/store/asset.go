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
	// Asset721Table holds minted ERC-721 assets.
	Asset721Table = "asset721"
	// Asset1155Table holds minted ERC-1155 assets.
	Asset1155Table = "asset1155"

	assetKeyWorkID = "WorkID"
)

type assetRecord struct {
	WorkID          string  `dynamodbav:"WorkID"`
	Address         string  `dynamodbav:"Address"`
	TokenID         string  `dynamodbav:"TokenID"`
	Name            string  `dynamodbav:"Name"`
	Description     string  `dynamodbav:"Description"`
	ImageURL        string  `dynamodbav:"ImageURL"`
	ImagePreviewURL string  `dynamodbav:"ImagePreviewURL"`
	Permalink       string  `dynamodbav:"Permalink"`
	UsdPrice        float64 `dynamodbav:"UsdPrice"`
	EthPrice        float64 `dynamodbav:"EthPrice"`
}

// AssetStore persists the minted-asset cache for one token standard. The
// (work id, standard) identity is carried by the per-standard table.
type AssetStore struct {
	api      DynamoAPI
	table    string
	standard domain.TokenStandard
}

// NewAssetStore creates the asset store for the given token standard.
func NewAssetStore(c *dynamo.Client, standard domain.TokenStandard) *AssetStore {
	table := Asset721Table
	if standard == domain.ERC1155 {
		table = Asset1155Table
	}
	return &AssetStore{api: c.API(), table: c.TableName(table), standard: standard}
}

// Standard returns the token standard this store serves.
func (s *AssetStore) Standard() domain.TokenStandard {
	return s.standard
}

// Get loads one asset row by work id.
func (s *AssetStore) Get(ctx context.Context, workID string) (*domain.Asset, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			assetKeyWorkID: &types.AttributeValueMemberS{Value: workID},
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get asset", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s asset for work %s: %w", s.standard, workID, apperr.ErrNotFound)
	}

	var rec assetRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode asset", err)
	}

	a := domain.Asset(rec)
	return &a, nil
}

// Put writes an asset row, placeholder or published.
func (s *AssetStore) Put(ctx context.Context, a *domain.Asset) error {
	item, err := attributevalue.MarshalMap(assetRecord(*a))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode asset", err)
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "put asset", err)
	}

	return nil
}

// Delete removes an asset row.
func (s *AssetStore) Delete(ctx context.Context, workID string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			assetKeyWorkID: &types.AttributeValueMemberS{Value: workID},
		},
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete asset", err)
	}
	return nil
}

// ListAll returns every asset row for the standard, paging through the table
// internally. Used by reconciliation, which needs the full set to detect
// stale entries.
func (s *AssetStore) ListAll(ctx context.Context) ([]domain.Asset, error) {
	var (
		assets   []domain.Asset
		startKey map[string]types.AttributeValue
	)

	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan assets", err)
		}

		for _, item := range out.Items {
			var rec assetRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "decode asset", err)
			}
			assets = append(assets, domain.Asset(rec))
		}

		if len(out.LastEvaluatedKey) == 0 {
			return assets, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
