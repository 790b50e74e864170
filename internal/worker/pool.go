package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canvaslab/nft-server/internal/apperr"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.tasksChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - tasksChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received task",
				slog.String("worker_name", workerName),
				slog.String("task_kind", msg.task.Kind().String()),
				slog.Uint64("delivery_tag", msg.deliveryTag),
			)

			err := w.processTask(ctx, msg)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("task_kind", msg.task.Kind().String()),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Task processing failed",
					slog.String("worker_name", workerName),
					slog.String("task_kind", msg.task.Kind().String()),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeueTask(err)

				if nackErr := channel.Nack(msg.deliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("task_kind", msg.task.Kind().String()),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := channel.Ack(msg.deliveryTag, false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Info("Task completed successfully",
						slog.String("worker_name", workerName),
						slog.String("task_kind", msg.task.Kind().String()),
					)
				}
			}
		}
	}
}

// shouldRequeueTask decides whether the bus should redeliver the message.
// Only explicitly retryable failures requeue; everything else would fail the
// same way again.
func (w *Worker) shouldRequeueTask(err error) bool {
	return apperr.IsRetryable(err)
}
