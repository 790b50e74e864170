package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/task"
	"github.com/canvaslab/nft-server/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	minted721  []task.MintERC721
	minted1155 []task.MintERC1155
	err        error
}

func (f *fakePipeline) MintERC721(_ context.Context, t task.MintERC721) error {
	if f.err != nil {
		return f.err
	}
	f.minted721 = append(f.minted721, t)
	return nil
}

func (f *fakePipeline) MintERC1155(_ context.Context, t task.MintERC1155) error {
	if f.err != nil {
		return f.err
	}
	f.minted1155 = append(f.minted1155, t)
	return nil
}

type fakeImporter struct {
	workFiles  []string
	thumbFiles []string
}

func (f *fakeImporter) ImportWorks(_ context.Context, prefix, fileName string) (int, error) {
	f.workFiles = append(f.workFiles, prefix+"/"+fileName)
	return 1, nil
}

func (f *fakeImporter) ImportThumbnails(_ context.Context, prefix, fileName string) (int, error) {
	f.thumbFiles = append(f.thumbFiles, prefix+"/"+fileName)
	return 1, nil
}

type fakeIdentity struct {
	emails map[string]string
}

func (f *fakeIdentity) EmailOf(_ context.Context, userID string) (string, error) {
	email, ok := f.emails[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return email, nil
}

type sentMail struct {
	email   string
	subject string
}

type fakeNotifier struct {
	sent []sentMail
}

func (f *fakeNotifier) Send(_ context.Context, email, subject, _ string) error {
	f.sent = append(f.sent, sentMail{email: email, subject: subject})
	return nil
}

type workerFixture struct {
	worker   *Worker
	pipeline *fakePipeline
	importer *fakeImporter
	notifier *fakeNotifier
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		pipeline: &fakePipeline{},
		importer: &fakeImporter{},
		notifier: &fakeNotifier{},
	}

	f.worker = NewWorker(&Config{
		Logger:   logger.NewDefault().Logger,
		Pipeline: f.pipeline,
		Importer: f.importer,
		Identity: &fakeIdentity{emails: map[string]string{
			"user-1": "user-1@example.com",
		}},
		Notifier:    f.notifier,
		Concurrency: 1,
	})

	return f
}

func TestProcessTask(t *testing.T) {
	t.Run("routes mint tasks to the pipeline", func(t *testing.T) {
		f := newWorkerFixture()

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.MintERC721{ExecutorID: "user-1", WorkID: "w1"},
		})
		require.NoError(t, err)

		require.Len(t, f.pipeline.minted721, 1)
		assert.Equal(t, "w1", f.pipeline.minted721[0].WorkID)
	})

	t.Run("routes import tasks to the importer", func(t *testing.T) {
		f := newWorkerFixture()

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.CreateWork{ExecutorID: "user-1", Prefix: "imports", FileName: "works.csv"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"imports/works.csv"}, f.importer.workFiles)

		err = f.worker.processTask(context.Background(), &taskMessage{
			task: task.CreateThumbnail{ExecutorID: "user-1", Prefix: "imports", FileName: "thumbs.csv"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"imports/thumbs.csv"}, f.importer.thumbFiles)
	})

	t.Run("notifies the executor on success", func(t *testing.T) {
		f := newWorkerFixture()

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.MintERC721{ExecutorID: "user-1", WorkID: "w1"},
		})
		require.NoError(t, err)

		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, "user-1@example.com", f.notifier.sent[0].email)
		assert.Contains(t, f.notifier.sent[0].subject, "finished")
	})

	t.Run("notifies the executor on terminal failure", func(t *testing.T) {
		f := newWorkerFixture()
		f.pipeline.err = apperr.New(apperr.KindBadRequest, "work already minted")

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.MintERC721{ExecutorID: "user-1", WorkID: "w1"},
		})
		require.Error(t, err)

		require.Len(t, f.notifier.sent, 1)
		assert.Contains(t, f.notifier.sent[0].subject, "failed")
	})

	t.Run("skips notification on retryable failure", func(t *testing.T) {
		f := newWorkerFixture()
		f.pipeline.err = apperr.Retryable(apperr.New(apperr.KindInternal, "token not indexed yet"))

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.MintERC721{ExecutorID: "user-1", WorkID: "w1"},
		})
		require.Error(t, err)
		assert.Empty(t, f.notifier.sent)
	})

	t.Run("unknown executor does not fail the task", func(t *testing.T) {
		f := newWorkerFixture()

		err := f.worker.processTask(context.Background(), &taskMessage{
			task: task.MintERC721{ExecutorID: "stranger", WorkID: "w1"},
		})
		require.NoError(t, err)
		assert.Empty(t, f.notifier.sent)
	})
}

func TestShouldRequeueTask(t *testing.T) {
	w := newWorkerFixture().worker

	assert.True(t, w.shouldRequeueTask(apperr.Retryable(apperr.New(apperr.KindInternal, "transient"))))
	assert.False(t, w.shouldRequeueTask(apperr.New(apperr.KindInternal, "permanent")))
	assert.False(t, w.shouldRequeueTask(apperr.New(apperr.KindBadRequest, "malformed")))
	assert.False(t, w.shouldRequeueTask(fmt.Errorf("opaque failure")))
}
