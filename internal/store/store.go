// Package store is the typed entity store adapter over DynamoDB. Each entity
// gets its own store with get/put/delete plus the page-based list operations
// its callers need. All list operations return an opaque continuation cursor
// (see cursor.go) rather than an offset, because the backing scan/query
// primitives are cursor-native.
//
// The adapter never retries: retry policy belongs to the caller. Write and
// batch failures surface as internal errors wrapping the storage error; a
// missing single-item get is a not-found error.
package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DefaultPageLimit is applied when a list call passes a non-positive limit.
const DefaultPageLimit = 20

// batchGetKeyLimit is DynamoDB's maximum key count per BatchGetItem request.
const batchGetKeyLimit = 100

// DynamoAPI is the slice of the DynamoDB client the stores use. Tests
// substitute a stub.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

func pageLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultPageLimit
	}
	return limit
}
