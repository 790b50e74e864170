package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/canvaslab/nft-server/internal/config"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/internal/nft"
	"github.com/canvaslab/nft-server/internal/platform/ethereum"
	"github.com/canvaslab/nft-server/internal/platform/opensea"
	"github.com/canvaslab/nft-server/internal/platform/s3store"
	"github.com/canvaslab/nft-server/internal/reconcile"
	"github.com/canvaslab/nft-server/internal/store"
	"github.com/canvaslab/nft-server/shared/dynamo"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/joho/godotenv"
)

// The reconcile binary runs one sweep over every token standard and exits.
// It is meant to be scheduled, not daemonized.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("RECONCILE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/reconcile/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateReconcileConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting reconciliation",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)

	ctx := context.Background()
	if cfg.Reconcile.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Reconcile.Timeout)
		defer cancel()
	}

	// Initialize the entity store
	dynamoClient, err := dynamo.NewClient(ctx, &dynamo.Config{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		TablePrefix:     cfg.DynamoDB.TablePrefix,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize DynamoDB: %w", err)
	}

	// Initialize object storage
	storageClient, err := s3store.NewClient(ctx, &s3store.Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Bucket:          cfg.S3.Bucket,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize S3: %w", err)
	}

	// Initialize the chain client
	ledger, err := ethereum.NewClient(&ethereum.Config{
		RPCURL:         cfg.Ethereum.RPCURL,
		ChainID:        cfg.Ethereum.ChainID,
		ERC721Address:  cfg.Ethereum.ERC721Address,
		ERC1155Address: cfg.Ethereum.ERC1155Address,
		MineTimeout:    cfg.Ethereum.MineTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ethereum client: %w", err)
	}

	// Initialize the marketplace client
	market := opensea.NewClient(&opensea.Config{
		BaseURL:           cfg.OpenSea.BaseURL,
		APIKey:            cfg.OpenSea.APIKey,
		RequestsPerSecond: cfg.OpenSea.RequestsPerSecond,
		Burst:             cfg.OpenSea.Burst,
		Timeout:           cfg.OpenSea.Timeout,
	})

	works := store.NewWorkStore(dynamoClient)
	users := store.NewUserStore(dynamoClient)
	asset721 := store.NewAssetStore(dynamoClient, domain.ERC721)
	asset1155 := store.NewAssetStore(dynamoClient, domain.ERC1155)

	// The sweep only syncs; it never publishes, so no bus client is wired.
	syncer := nft.NewOrchestrator(works, users, map[domain.TokenStandard]nft.AssetStore{
		domain.ERC721:  asset721,
		domain.ERC1155: asset1155,
	}, nil, storageClient, ledger, market, appLogger.Logger)

	reconciler := reconcile.NewReconciler(ledger, syncer, works, map[domain.TokenStandard]reconcile.AssetStore{
		domain.ERC721:  asset721,
		domain.ERC1155: asset1155,
	}, appLogger.Logger)

	if err := reconciler.RunAll(ctx); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	appLogger.Info("Reconciliation complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}
