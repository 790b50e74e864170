package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canvaslab/nft-server/internal/config"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/internal/importer"
	"github.com/canvaslab/nft-server/internal/nft"
	"github.com/canvaslab/nft-server/internal/platform/cognito"
	"github.com/canvaslab/nft-server/internal/platform/ethereum"
	"github.com/canvaslab/nft-server/internal/platform/opensea"
	"github.com/canvaslab/nft-server/internal/platform/s3store"
	"github.com/canvaslab/nft-server/internal/platform/sesmail"
	"github.com/canvaslab/nft-server/internal/store"
	"github.com/canvaslab/nft-server/internal/worker"
	"github.com/canvaslab/nft-server/shared/dynamo"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/canvaslab/nft-server/shared/rabbitmq"
	"github.com/joho/godotenv"
)

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
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	startCtx := context.Background()

	// Initialize the entity store
	dynamoClient, err := dynamo.NewClient(startCtx, &dynamo.Config{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		TablePrefix:     cfg.DynamoDB.TablePrefix,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize DynamoDB: %w", err)
	}

	appLogger.Info("DynamoDB connection established")

	// Initialize object storage
	storageClient, err := s3store.NewClient(startCtx, &s3store.Config{
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

	// Initialize notification clients
	notifier, err := sesmail.NewNotifier(startCtx, &sesmail.Config{
		Region:          cfg.SES.Region,
		Endpoint:        cfg.SES.Endpoint,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize SES: %w", err)
	}

	identity, err := cognito.NewResolver(startCtx, &cognito.Config{
		Region:          cfg.Cognito.Region,
		Endpoint:        cfg.Cognito.Endpoint,
		AccessKeyID:     cfg.Cognito.AccessKeyID,
		SecretAccessKey: cfg.Cognito.SecretAccessKey,
		UserPoolID:      cfg.Cognito.UserPoolID,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Cognito: %w", err)
	}

	// Initialize RabbitMQ as a consumer with the bound task queue
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	works := store.NewWorkStore(dynamoClient)
	users := store.NewUserStore(dynamoClient)
	thumbnails := store.NewThumbnailStore(dynamoClient)
	assets := map[domain.TokenStandard]nft.AssetStore{
		domain.ERC721:  store.NewAssetStore(dynamoClient, domain.ERC721),
		domain.ERC1155: store.NewAssetStore(dynamoClient, domain.ERC1155),
	}

	pipeline := nft.NewOrchestrator(works, users, assets, rabbitClient, storageClient, ledger, market, appLogger.Logger)
	bulkImporter := importer.NewImporter(storageClient, works, thumbnails, appLogger.Logger)

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		RabbitClient:  rabbitClient,
		Pipeline:      pipeline,
		Importer:      bulkImporter,
		Identity:      identity,
		Notifier:      notifier,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		TaskTimeout:   cfg.Worker.TaskTimeout,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Worker service shutdown complete")
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

// initRabbitMQ initializes the RabbitMQ client with the consumer queue bound
// to the task topics.
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		BindingKey:         cfg.BindingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
