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
	// WorkTable is the base table name for works.
	WorkTable = "work"

	workStatusIndex = "Status-Index"
	workKeyID       = "ID"
	workKeyStatus   = "Status"
)

type workRecord struct {
	ID        string `dynamodbav:"ID"`
	MediaPath string `dynamodbav:"MediaPath"`
	Status    string `dynamodbav:"Status"`
	Price     int    `dynamodbav:"Price"`
}

func workFromRecord(rec workRecord) (*domain.Work, error) {
	status, err := domain.ParseWorkStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("work %s: %w", rec.ID, err)
	}
	return &domain.Work{
		ID:        rec.ID,
		MediaPath: rec.MediaPath,
		Status:    status,
		Price:     rec.Price,
	}, nil
}

func recordFromWork(w *domain.Work) workRecord {
	return workRecord{
		ID:        w.ID,
		MediaPath: w.MediaPath,
		Status:    string(w.Status),
		Price:     w.Price,
	}
}

// WorkStore persists works.
type WorkStore struct {
	api   DynamoAPI
	table string
}

// NewWorkStore creates a work store on the shared DynamoDB client.
func NewWorkStore(c *dynamo.Client) *WorkStore {
	return &WorkStore{api: c.API(), table: c.TableName(WorkTable)}
}

// Get loads one work by id.
func (s *WorkStore) Get(ctx context.Context, id string) (*domain.Work, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			workKeyID: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get work", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("work %s: %w", id, apperr.ErrNotFound)
	}

	var rec workRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode work", err)
	}

	return workFromRecord(rec)
}

// GetMulti loads several works, preserving the caller's id order. Ids with no
// stored work are silently dropped, never an error: callers rely on
// index-aligned correspondence with the surviving ids.
func (s *WorkStore) GetMulti(ctx context.Context, ids []string) ([]domain.Work, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, map[string]types.AttributeValue{
			workKeyID: &types.AttributeValueMemberS{Value: id},
		})
	}

	byID := make(map[string]domain.Work, len(keys))
	for len(keys) > 0 {
		// BatchGetItem caps a request at 100 keys.
		batch := keys
		if len(batch) > batchGetKeyLimit {
			batch = keys[:batchGetKeyLimit]
		}
		keys = keys[len(batch):]

		out, err := s.api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.table: {Keys: batch},
			},
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "batch get works", err)
		}

		for _, item := range out.Responses[s.table] {
			var rec workRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "decode work", err)
			}
			w, err := workFromRecord(rec)
			if err != nil {
				return nil, err
			}
			byID[w.ID] = *w
		}

		keys = append(keys, out.UnprocessedKeys[s.table].Keys...)
	}

	ordered := make([]domain.Work, 0, len(byID))
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			ordered = append(ordered, w)
			delete(byID, id)
		}
	}

	return ordered, nil
}

// Put writes a work. A put on one primary key is atomic; there is no
// multi-item transaction spanning work and asset updates.
func (s *WorkStore) Put(ctx context.Context, w *domain.Work) error {
	item, err := attributevalue.MarshalMap(recordFromWork(w))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode work", err)
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "put work", err)
	}

	return nil
}

// Delete removes a work. Deleting an absent id is not an error.
func (s *WorkStore) Delete(ctx context.Context, id string) error {
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			workKeyID: &types.AttributeValueMemberS{Value: id},
		},
	}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete work", err)
	}
	return nil
}

// List returns one page of works and the continuation cursor.
func (s *WorkStore) List(ctx context.Context, cursor string, limit int32) ([]domain.Work, string, error) {
	startKey, err := DecodePageKey(cursor)
	if err != nil {
		return nil, "", err
	}

	out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
		TableName:         aws.String(s.table),
		ExclusiveStartKey: startKey,
		Limit:             aws.Int32(pageLimit(limit)),
	})
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "scan works", err)
	}

	works, err := worksFromItems(out.Items)
	if err != nil {
		return nil, "", err
	}

	next, err := EncodePageKey(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}

	return works, next, nil
}

// ListByStatus returns one page of works in the given status, via the status
// index.
func (s *WorkStore) ListByStatus(ctx context.Context, status domain.WorkStatus, cursor string, limit int32) ([]domain.Work, string, error) {
	startKey, err := DecodePageKey(cursor)
	if err != nil {
		return nil, "", err
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(workStatusIndex),
		KeyConditionExpression: aws.String("#st = :st"),
		ExpressionAttributeNames: map[string]string{
			"#st": workKeyStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: string(status)},
		},
		ExclusiveStartKey: startKey,
		Limit:             aws.Int32(pageLimit(limit)),
	})
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "query works by status", err)
	}

	works, err := worksFromItems(out.Items)
	if err != nil {
		return nil, "", err
	}

	next, err := EncodePageKey(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}

	return works, next, nil
}

func worksFromItems(items []map[string]types.AttributeValue) ([]domain.Work, error) {
	works := make([]domain.Work, 0, len(items))
	for _, item := range items {
		var rec workRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "decode work", err)
		}
		w, err := workFromRecord(rec)
		if err != nil {
			return nil, err
		}
		works = append(works, *w)
	}
	return works, nil
}
