package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canvaslab/nft-server/internal/api/handler"
	"github.com/canvaslab/nft-server/internal/api/router"
	"github.com/canvaslab/nft-server/internal/config"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/canvaslab/nft-server/internal/nft"
	"github.com/canvaslab/nft-server/internal/platform/ethereum"
	"github.com/canvaslab/nft-server/internal/platform/opensea"
	"github.com/canvaslab/nft-server/internal/platform/s3store"
	"github.com/canvaslab/nft-server/internal/store"
	"github.com/canvaslab/nft-server/shared/dynamo"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/canvaslab/nft-server/shared/rabbitmq"
	"github.com/gin-gonic/gin"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// Initialize the entity store
	dynamoClient, err := initDynamo(ctx, &cfg.DynamoDB, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize DynamoDB: %w", err)
	}

	appLogger.Info("DynamoDB connection established")

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

	// Initialize RabbitMQ as a publisher; no queue is declared here
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger, false)
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

	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:     appLogger.Logger,
		Works:      works,
		Thumbnails: thumbnails,
		Users:      users,
		Pipeline:   pipeline,
		Bus:        rabbitClient,
		Balances:   ledger,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
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

// initDynamo initializes the DynamoDB client
func initDynamo(ctx context.Context, cfg *config.DynamoDBConfig, logger *slog.Logger) (*dynamo.Client, error) {
	return dynamo.NewClient(ctx, &dynamo.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		TablePrefix:     cfg.TablePrefix,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client. Consumers declare and bind
// the shared queue; publishers only declare the exchange.
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger, consumer bool) (*rabbitmq.Client, error) {
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
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	if consumer {
		rabbitConfig.QueueName = cfg.Queue.Name
		rabbitConfig.QueueDurable = cfg.Queue.Durable
		rabbitConfig.QueueAutoDelete = cfg.Queue.AutoDelete
		rabbitConfig.QueueExclusive = cfg.Queue.Exclusive
		rabbitConfig.BindingKey = cfg.BindingKey
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
