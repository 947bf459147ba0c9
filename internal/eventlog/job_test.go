package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCleanupJob_Process(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo)
	job := NewCleanupJob(service, 30*24*time.Hour)
	ctx := context.Background()

	mockRepo.On("CleanupOldEvents", mock.Anything, mock.MatchedBy(func(before time.Time) bool {
		return time.Since(before) >= 30*24*time.Hour
	})).Return(int64(100), nil)

	err := job.Process(ctx)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestCleanupJob_ProcessError(t *testing.T) {
	mockRepo := new(MockRepository)
	job := NewCleanupJob(NewService(mockRepo), time.Hour)

	mockRepo.On("CleanupOldEvents", mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))

	assert.Error(t, job.Process(context.Background()))
}
