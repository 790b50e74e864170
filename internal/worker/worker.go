// Package worker consumes the task queue and executes import and mint tasks.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/canvaslab/nft-server/internal/task"
	"github.com/canvaslab/nft-server/shared/rabbitmq"
	"github.com/google/uuid"
)

// Pipeline executes mint tasks against the publish orchestrator.
type Pipeline interface {
	MintERC721(ctx context.Context, t task.MintERC721) error
	MintERC1155(ctx context.Context, t task.MintERC1155) error
}

// BulkImporter executes CSV import tasks.
type BulkImporter interface {
	ImportWorks(ctx context.Context, prefix, fileName string) (int, error)
	ImportThumbnails(ctx context.Context, prefix, fileName string) (int, error)
}

// Identity resolves executor ids to notification addresses.
type Identity interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

// Notifier delivers task-completion mail.
type Notifier interface {
	Send(ctx context.Context, email, subject, body string) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Pipeline      Pipeline
	Importer      BulkImporter
	Identity      Identity
	Notifier      Notifier
	Concurrency   int
	PrefetchCount int
	TaskTimeout   time.Duration
}

// taskMessage pairs a decoded task with its bus delivery tag.
type taskMessage struct {
	task        task.Task
	deliveryTag uint64
}

// Worker represents the background task worker
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	pipeline      Pipeline
	importer      BulkImporter
	identity      Identity
	notifier      Notifier
	workerID      string
	concurrency   int
	prefetchCount int
	taskTimeout   time.Duration
	tasksChan     chan *taskMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		pipeline:      cfg.Pipeline,
		importer:      cfg.Importer,
		identity:      cfg.Identity,
		notifier:      cfg.Notifier,
		workerID:      "worker-" + uuid.NewString(),
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		taskTimeout:   cfg.TaskTimeout,
		tasksChan:     make(chan *taskMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing tasks. Blocks until ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("task_timeout", w.taskTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	go w.startMessageDispatcher(ctx, deliveries)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
