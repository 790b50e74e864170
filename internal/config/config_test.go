package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8080
  read_timeout: 10s
  shutdown_timeout: 30s

dynamodb:
  region: ap-northeast-1
  endpoint: http://localhost:8000
  table_prefix: dev_

s3:
  region: ap-northeast-1
  bucket: canvas-media

ses:
  region: ap-northeast-1
  sender: noreply@example.com

cognito:
  region: ap-northeast-1
  user_pool_id: ap-northeast-1_test

ethereum:
  rpc_url: http://localhost:8545
  chain_id: 1337
  erc721_address: "0x1111111111111111111111111111111111111111"
  erc1155_address: "0x2222222222222222222222222222222222222222"
  mine_timeout: 2m

opensea:
  base_url: https://api.opensea.example
  requests_per_second: 2
  burst: 1

rabbitmq:
  host: localhost
  port: 5672
  user: guest
  password: guest
  vhost: /
  exchange:
    name: nft.tasks
    type: topic
    durable: true
  queue:
    name: nft.tasks.worker
    durable: true
  binding_key: "task.#"
  consumer:
    prefetch_count: 8

logging:
  level: info
  format: json

worker:
  concurrency: 4
  task_timeout: 5m
  shutdown_timeout: 30s

reconcile:
  timeout: 10m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ap-northeast-1", cfg.DynamoDB.Region)
	assert.Equal(t, "dev_", cfg.DynamoDB.TablePrefix)
	assert.Equal(t, "canvas-media", cfg.S3.Bucket)
	assert.Equal(t, int64(1337), cfg.Ethereum.ChainID)
	assert.Equal(t, 2*time.Minute, cfg.Ethereum.MineTimeout)
	assert.Equal(t, "nft.tasks", cfg.RabbitMQ.Exchange.Name)
	assert.Equal(t, "task.#", cfg.RabbitMQ.BindingKey)
	assert.Equal(t, 8, cfg.RabbitMQ.Consumer.PrefetchCount)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Worker.TaskTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateAPIConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAPIConfig())

	t.Run("rejects bad server port", func(t *testing.T) {
		bad := *cfg
		bad.Server.Port = 0
		assert.Error(t, bad.ValidateAPIConfig())
	})

	t.Run("rejects missing s3 bucket", func(t *testing.T) {
		bad := *cfg
		bad.S3.Bucket = ""
		assert.Error(t, bad.ValidateAPIConfig())
	})

	t.Run("queue name not required for publisher", func(t *testing.T) {
		ok := *cfg
		ok.RabbitMQ.Queue.Name = ""
		assert.NoError(t, ok.ValidateAPIConfig())
	})
}

func TestValidateWorkerConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateWorkerConfig())

	t.Run("requires concurrency", func(t *testing.T) {
		bad := *cfg
		bad.Worker.Concurrency = 0
		assert.Error(t, bad.ValidateWorkerConfig())
	})

	t.Run("requires queue and binding key", func(t *testing.T) {
		bad := *cfg
		bad.RabbitMQ.Queue.Name = ""
		assert.Error(t, bad.ValidateWorkerConfig())

		bad = *cfg
		bad.RabbitMQ.BindingKey = ""
		assert.Error(t, bad.ValidateWorkerConfig())
	})

	t.Run("requires ses sender", func(t *testing.T) {
		bad := *cfg
		bad.SES.Sender = ""
		assert.Error(t, bad.ValidateWorkerConfig())
	})
}

func TestValidateReconcileConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateReconcileConfig())

	bad := *cfg
	bad.Ethereum.RPCURL = ""
	assert.Error(t, bad.ValidateReconcileConfig())
}
