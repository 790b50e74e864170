package task

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		task Task
	}{
		{
			name: "create work",
			task: CreateWork{ExecutorID: "u1", Prefix: "work_csv", FileName: "work.csv"},
		},
		{
			name: "create thumbnail",
			task: CreateThumbnail{ExecutorID: "u1", Prefix: "thumbnail_csv", FileName: "thumbnail.csv"},
		},
		{
			name: "mint erc721",
			task: MintERC721{ExecutorID: "u1", WorkID: "w1", MetadataKey: "erc721_asset/w1.metadata.json"},
		},
		{
			name: "mint erc1155",
			task: MintERC1155{ExecutorID: "u1", WorkID: "w2", Amount: 10, MetadataKey: "erc1155_asset/w2.metadata.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Encode(tt.task)
			require.NoError(t, err)

			got, err := Decode(body)
			require.NoError(t, err)
			assert.Equal(t, tt.task, got)
		})
	}
}

func TestEncodeWireShape(t *testing.T) {
	body, err := Encode(MintERC721{ExecutorID: "u1", WorkID: "w1", MetadataKey: "k"})
	require.NoError(t, err)

	var env struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &env))

	// The subject travels as the discriminant rendered as a string, and the
	// payload as a JSON-encoded string, not a nested object.
	assert.Equal(t, "3", env.Subject)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.Message), &payload))
	assert.Equal(t, "w1", payload["work_id"])
	assert.Equal(t, "u1", payload["executor_id"])
}

func TestDecodeUnknownSubject(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unregistered discriminant", body: `{"subject":"99","message":"{}"}`},
		{name: "zero discriminant", body: `{"subject":"0","message":"{}"}`},
		{name: "negative discriminant", body: `{"subject":"-1","message":"{}"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrUnknownKind))
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not-json"},
		{name: "non-numeric subject", body: `{"subject":"mint","message":"{}"}`},
		{name: "payload not json", body: `{"subject":"3","message":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.False(t, errors.Is(err, ErrUnknownKind))
		})
	}
}

func TestRoutingKeys(t *testing.T) {
	assert.Equal(t, "task.work.import", KindCreateWork.RoutingKey())
	assert.Equal(t, "task.thumbnail.import", KindCreateThumbnail.RoutingKey())
	assert.Equal(t, "task.nft.mint721", KindMintERC721.RoutingKey())
	assert.Equal(t, "task.nft.mint1155", KindMintERC1155.RoutingKey())
	assert.Empty(t, Kind(42).RoutingKey())
}
