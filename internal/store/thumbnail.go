package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/shared/dynamo"
)

const (
	// ThumbnailTable is the base table name for thumbnails.
	ThumbnailTable = "thumbnail"

	thumbnailWorkIndex = "WorkID-Order-Index"
	thumbnailKeyID     = "ID"
	thumbnailKeyWork   = "WorkID"
)

type thumbnailRecord struct {
	ID        string `dynamodbav:"ID"`
	WorkID    string `dynamodbav:"WorkID"`
	ImagePath string `dynamodbav:"ImagePath"`
	Order     int    `dynamodbav:"Order"`
}

// ThumbnailStore persists work thumbnails.
type ThumbnailStore struct {
	api   DynamoAPI
	table string
}

// NewThumbnailStore creates a thumbnail store on the shared DynamoDB client.
func NewThumbnailStore(c *dynamo.Client) *ThumbnailStore {
	return &ThumbnailStore{api: c.API(), table: c.TableName(ThumbnailTable)}
}

// Put writes a thumbnail.
func (s *ThumbnailStore) Put(ctx context.Context, th *domain.Thumbnail) error {
	item, err := attributevalue.MarshalMap(thumbnailRecord{
		ID:        th.ID,
		WorkID:    th.WorkID,
		ImagePath: th.ImagePath,
		Order:     th.Order,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode thumbnail", err)
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "put thumbnail", err)
	}

	return nil
}

// Delete removes a thumbnail by id.
func (s *ThumbnailStore) Delete(ctx context.Context, id string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			thumbnailKeyID: &types.AttributeValueMemberS{Value: id},
		},
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete thumbnail", err)
	}
	return nil
}

// GetByWork returns one page of a work's thumbnails in display order.
func (s *ThumbnailStore) GetByWork(ctx context.Context, workID, cursor string, limit int32) ([]domain.Thumbnail, string, error) {
	startKey, err := DecodePageKey(cursor)
	if err != nil {
		return nil, "", err
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(thumbnailWorkIndex),
		KeyConditionExpression: aws.String("#wid = :wid"),
		ExpressionAttributeNames: map[string]string{
			"#wid": thumbnailKeyWork,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":wid": &types.AttributeValueMemberS{Value: workID},
		},
		ScanIndexForward:  aws.Bool(true),
		ExclusiveStartKey: startKey,
		Limit:             aws.Int32(pageLimit(limit)),
	})
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "query thumbnails by work", err)
	}

	thumbs := make([]domain.Thumbnail, 0, len(out.Items))
	for _, item := range out.Items {
		var rec thumbnailRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, "", apperr.Wrap(apperr.KindInternal, "decode thumbnail", err)
		}
		thumbs = append(thumbs, domain.Thumbnail{
			ID:        rec.ID,
			WorkID:    rec.WorkID,
			ImagePath: rec.ImagePath,
			Order:     rec.Order,
		})
	}

	next, err := EncodePageKey(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}

	return thumbs, next, nil
}
