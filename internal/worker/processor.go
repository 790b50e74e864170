package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/task"
)

// processTask executes one task under the configured timeout and notifies
// the executor of the outcome. Retryable failures skip notification; the
// executor hears about the task once it settles.
func (w *Worker) processTask(ctx context.Context, msg *taskMessage) error {
	taskCtx := ctx
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.taskTimeout)
		defer cancel()
	}

	err := w.executeTask(taskCtx, msg.task)

	if err == nil || !apperr.IsRetryable(err) {
		w.notifyExecutor(ctx, msg.task, err)
	}

	return err
}

// executeTask routes the task to its handler.
func (w *Worker) executeTask(ctx context.Context, t task.Task) error {
	switch t := t.(type) {
	case task.CreateWork:
		_, err := w.importer.ImportWorks(ctx, t.Prefix, t.FileName)
		return err
	case task.CreateThumbnail:
		_, err := w.importer.ImportThumbnails(ctx, t.Prefix, t.FileName)
		return err
	case task.MintERC721:
		return w.pipeline.MintERC721(ctx, t)
	case task.MintERC1155:
		return w.pipeline.MintERC1155(ctx, t)
	default:
		return apperr.Newf(apperr.KindInternal, "no handler for task kind %s", t.Kind())
	}
}

// notifyExecutor mails the requesting user about the task outcome. Failures
// here are logged only; notification must never change the ack decision.
func (w *Worker) notifyExecutor(ctx context.Context, t task.Task, taskErr error) {
	executor := t.Executor()
	if executor == "" {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	email, err := w.identity.EmailOf(notifyCtx, executor)
	if err != nil {
		w.logger.Warn("Failed to resolve executor email",
			slog.String("executor_id", executor),
			slog.String("task_kind", t.Kind().String()),
			slog.String("error", err.Error()),
		)
		return
	}

	subject := fmt.Sprintf("Task %s finished", t.Kind())
	body := fmt.Sprintf("Your %s task has completed successfully.", t.Kind())
	if taskErr != nil {
		subject = fmt.Sprintf("Task %s failed", t.Kind())
		body = fmt.Sprintf("Your %s task failed: %s", t.Kind(), taskErr.Error())
	}

	if err := w.notifier.Send(notifyCtx, email, subject, body); err != nil {
		w.logger.Warn("Failed to send task notification",
			slog.String("executor_id", executor),
			slog.String("task_kind", t.Kind().String()),
			slog.String("error", err.Error()),
		)
	}
}
