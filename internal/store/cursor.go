package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/canvaslab/nft-server/internal/apperr"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = apperr.New(apperr.KindBadRequest, "invalid cursor")

// The store's native continuation token is a map of attribute name to a
// tagged scalar. Cursors serialize that map as JSON with a one-letter tag per
// scalar type and wrap it in unpadded URL-safe base64, so the result can
// travel as a query parameter while staying opaque to clients.
type cursorAttr struct {
	S *string `json:"s,omitempty"`
	N *string `json:"n,omitempty"`
}

// EncodePageKey converts a DynamoDB LastEvaluatedKey into an opaque cursor.
// A nil or empty key yields the empty cursor, meaning the result set is
// exhausted.
func EncodePageKey(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	tagged := make(map[string]cursorAttr, len(key))
	for name, av := range key {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			s := v.Value
			tagged[name] = cursorAttr{S: &s}
		case *types.AttributeValueMemberN:
			n := v.Value
			tagged[name] = cursorAttr{N: &n}
		default:
			return "", apperr.Newf(apperr.KindInternal, "page key attribute %q has unsupported type %T", name, av)
		}
	}

	raw, err := json.Marshal(tagged)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "encode page key", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePageKey converts an opaque cursor back into an ExclusiveStartKey. An
// empty cursor means "start of result set" and decodes to nil without error.
//
// Cursors are only meaningful for the query they came from; a cursor replayed
// against a different table or index is rejected by the store itself, not
// here.
func DecodePageKey(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var tagged map[string]cursorAttr
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	key := make(map[string]types.AttributeValue, len(tagged))
	for name, attr := range tagged {
		switch {
		case attr.S != nil:
			key[name] = &types.AttributeValueMemberS{Value: *attr.S}
		case attr.N != nil:
			key[name] = &types.AttributeValueMemberN{Value: *attr.N}
		default:
			return nil, fmt.Errorf("%w: attribute %q carries no recognized tag", ErrInvalidCursor, name)
		}
	}

	return key, nil
}
