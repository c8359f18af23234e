package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"precheck/internal/model"
	repomocks "precheck/internal/repository/mocks"
	"precheck/internal/service"
	servicemocks "precheck/internal/service/mocks"
)

func TestWorker_Tick(t *testing.T) {
	repo := new(repomocks.MockDocumentRepository)
	svc := new(servicemocks.MockDocumentService)
	w := New(svc, repo, time.Second, 5, nil)

	repo.On("PendingIDs", mock.Anything, 5).Return([]string{"doc-1", "doc-2", "doc-3"}, nil)
	svc.On("VerifyWithRetry", mock.Anything, "doc-1").
		Return(&model.Document{ID: "doc-1", Status: model.StatusVerified}, nil)
	// A failed document must not stop the rest of the batch.
	svc.On("VerifyWithRetry", mock.Anything, "doc-2").
		Return(&model.Document{ID: "doc-2", Status: model.StatusError},
			fmt.Errorf("%w: document doc-2", service.ErrVerificationFailed))
	svc.On("VerifyWithRetry", mock.Anything, "doc-3").
		Return(&model.Document{ID: "doc-3", Status: model.StatusVerified}, nil)

	w.tick(context.Background())

	repo.AssertExpectations(t)
	svc.AssertExpectations(t)
	svc.AssertNumberOfCalls(t, "VerifyWithRetry", 3)
}

func TestWorker_Tick_PollError(t *testing.T) {
	repo := new(repomocks.MockDocumentRepository)
	svc := new(servicemocks.MockDocumentService)
	w := New(svc, repo, time.Second, 5, nil)

	repo.On("PendingIDs", mock.Anything, 5).Return(nil, errors.New("db down"))

	w.tick(context.Background())

	svc.AssertNotCalled(t, "VerifyWithRetry", mock.Anything, mock.Anything)
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	repo := new(repomocks.MockDocumentRepository)
	svc := new(servicemocks.MockDocumentService)
	w := New(svc, repo, time.Millisecond, 5, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
	repo.AssertNotCalled(t, "PendingIDs", mock.Anything, mock.Anything)
}
