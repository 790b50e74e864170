package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDynamo implements DynamoAPI with canned responses.
type stubDynamo struct {
	getItem      func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem      func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	deleteItem   func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	batchGetItem func(*dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error)
	scan         func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	query        func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
}

func (s *stubDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return s.getItem(in)
}

func (s *stubDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return s.putItem(in)
}

func (s *stubDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return s.deleteItem(in)
}

func (s *stubDynamo) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	return s.batchGetItem(in)
}

func (s *stubDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return s.scan(in)
}

func (s *stubDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return s.query(in)
}

func workItem(id, status string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"ID":        &types.AttributeValueMemberS{Value: id},
		"MediaPath": &types.AttributeValueMemberS{Value: "media/" + id},
		"Status":    &types.AttributeValueMemberS{Value: status},
		"Price":     &types.AttributeValueMemberN{Value: "0"},
	}
}

func TestWorkStoreGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := &WorkStore{table: "work", api: &stubDynamo{
			getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				assert.Equal(t, "work", *in.TableName)
				return &dynamodb.GetItemOutput{Item: workItem("w1", "Prepare")}, nil
			},
		}}

		w, err := s.Get(context.Background(), "w1")
		require.NoError(t, err)
		assert.Equal(t, "w1", w.ID)
		assert.Equal(t, domain.StatusPrepare, w.Status)
		assert.Equal(t, "media/w1", w.MediaPath)
	})

	t.Run("absent id is not found", func(t *testing.T) {
		s := &WorkStore{table: "work", api: &stubDynamo{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		}}

		_, err := s.Get(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("unknown status is internal, not defaulted", func(t *testing.T) {
		s := &WorkStore{table: "work", api: &stubDynamo{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: workItem("w1", "Banana")}, nil
			},
		}}

		_, err := s.Get(context.Background(), "w1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestWorkStoreGetMulti(t *testing.T) {
	t.Run("preserves caller order and drops missing ids", func(t *testing.T) {
		s := &WorkStore{table: "work", api: &stubDynamo{
			batchGetItem: func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
				assert.Len(t, in.RequestItems["work"].Keys, 3)
				// The store may receive results in any order.
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{
						"work": {
							workItem("c", "Published"),
							workItem("a", "Prepare"),
						},
					},
				}, nil
			},
		}}

		works, err := s.GetMulti(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, works, 2)
		assert.Equal(t, "a", works[0].ID)
		assert.Equal(t, "c", works[1].ID)
	})

	t.Run("retries unprocessed keys", func(t *testing.T) {
		calls := 0
		s := &WorkStore{table: "work", api: &stubDynamo{
			batchGetItem: func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
				calls++
				if calls == 1 {
					return &dynamodb.BatchGetItemOutput{
						Responses: map[string][]map[string]types.AttributeValue{
							"work": {workItem("a", "Prepare")},
						},
						UnprocessedKeys: map[string]types.KeysAndAttributes{
							"work": {Keys: []map[string]types.AttributeValue{
								{"ID": &types.AttributeValueMemberS{Value: "b"}},
							}},
						},
					}, nil
				}
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{
						"work": {workItem("b", "Prepare")},
					},
				}, nil
			},
		}}

		works, err := s.GetMulti(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		require.Len(t, works, 2)
		assert.Equal(t, "a", works[0].ID)
		assert.Equal(t, "b", works[1].ID)
	})

	t.Run("splits large id lists into batches of 100", func(t *testing.T) {
		ids := make([]string, 0, 250)
		for i := 0; i < 250; i++ {
			ids = append(ids, fmt.Sprintf("w%03d", i))
		}

		var batchSizes []int
		s := &WorkStore{table: "work", api: &stubDynamo{
			batchGetItem: func(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
				keys := in.RequestItems["work"].Keys
				batchSizes = append(batchSizes, len(keys))
				items := make([]map[string]types.AttributeValue, 0, len(keys))
				for _, key := range keys {
					id := key["ID"].(*types.AttributeValueMemberS).Value
					items = append(items, workItem(id, "Prepare"))
				}
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{"work": items},
				}, nil
			},
		}}

		works, err := s.GetMulti(context.Background(), ids)
		require.NoError(t, err)
		require.Len(t, works, 250)
		assert.Equal(t, []int{100, 100, 50}, batchSizes)
		assert.Equal(t, "w000", works[0].ID)
		assert.Equal(t, "w249", works[249].ID)
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		s := &WorkStore{table: "work", api: &stubDynamo{}}

		works, err := s.GetMulti(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, works)
	})
}

func TestWorkStoreList(t *testing.T) {
	lastKey := map[string]types.AttributeValue{
		"ID": &types.AttributeValueMemberS{Value: "w2"},
	}

	s := &WorkStore{table: "work", api: &stubDynamo{
		scan: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			assert.Nil(t, in.ExclusiveStartKey)
			assert.EqualValues(t, 2, *in.Limit)
			return &dynamodb.ScanOutput{
				Items:            []map[string]types.AttributeValue{workItem("w1", "Prepare"), workItem("w2", "Published")},
				LastEvaluatedKey: lastKey,
			}, nil
		},
	}}

	works, next, err := s.List(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, works, 2)
	require.NotEmpty(t, next)

	// The returned cursor decodes back to the store's native key.
	decoded, err := DecodePageKey(next)
	require.NoError(t, err)
	assert.Equal(t, lastKey, decoded)
}

func TestWorkStoreListByStatus(t *testing.T) {
	s := &WorkStore{table: "work", api: &stubDynamo{
		query: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, "Status-Index", *in.IndexName)
			assert.Equal(t,
				&types.AttributeValueMemberS{Value: "Published"},
				in.ExpressionAttributeValues[":st"],
			)
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{workItem("w7", "Published")},
			}, nil
		},
	}}

	works, next, err := s.ListByStatus(context.Background(), domain.StatusPublished, "", 0)
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, "w7", works[0].ID)
	assert.Empty(t, next)
}

func TestWorkStoreListRejectsBadCursor(t *testing.T) {
	s := &WorkStore{table: "work", api: &stubDynamo{}}

	_, _, err := s.List(context.Background(), "!!!", 10)
	require.Error(t, err)
	assert.True(t, apperr.IsBadRequest(err))
}
