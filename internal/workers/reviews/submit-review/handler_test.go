package submitreview

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/models"
	"nearby-market/internal/reviews"
	"nearby-market/internal/store/storetest"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "test-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_SubmitReview",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}}
}

func newHandler(t *testing.T) (*Handler, *storetest.Memory) {
	t.Helper()
	m := storetest.NewMemory()
	m.AddProduct(models.Product{ID: "atta", ShopID: "s1", Name: "Atta 10kg", Price: decimal.NewFromInt(420), StockStatus: models.StockStatusInStock})
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Reviews:      reviews.NewService(m, nil, logger.NewTestLogger(t)),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h, m
}

func TestProcess_UpsertsOneReviewPerAuthor(t *testing.T) {
	h, m := newHandler(t)
	ctx := context.Background()

	job := createMockJob(1, map[string]interface{}{"productId": "atta", "userId": "u1", "userName": "Asha", "rating": 5, "comment": "great"})
	out, err := h.runner.Invoke(ctx, []byte(job.Variables), h.process)
	require.NoError(t, err)
	first := out.(*Output)
	assert.True(t, first.Created)
	assert.Equal(t, 1, first.Summary.ReviewCount)

	job = createMockJob(2, map[string]interface{}{"productId": "atta", "userId": "u1", "rating": 3})
	out, err = h.runner.Invoke(ctx, []byte(job.Variables), h.process)
	require.NoError(t, err)
	second := out.(*Output)
	assert.False(t, second.Created)
	assert.Equal(t, first.Review.ID, second.Review.ID)
	assert.Empty(t, second.Review.Comment)
	assert.Equal(t, 3.0, second.Summary.AverageRating)
	assert.Len(t, m.Reviews(), 1)
}

func TestProcess_Rejections(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]interface{}
		code apperrors.ErrorCode
	}{
		{"rating zero", map[string]interface{}{"productId": "atta", "userId": "u1", "rating": 0}, apperrors.ErrCodeInvalidRating},
		{"rating six", map[string]interface{}{"productId": "atta", "userId": "u1", "rating": 6}, apperrors.ErrCodeInvalidRating},
		{"fractional rating", map[string]interface{}{"productId": "atta", "userId": "u1", "rating": 4.5}, apperrors.ErrCodeInputValidationFailed},
		{"missing user", map[string]interface{}{"productId": "atta", "rating": 4}, apperrors.ErrCodeInputValidationFailed},
		{"unknown product", map[string]interface{}{"productId": "nope", "userId": "u1", "rating": 4}, apperrors.ErrCodeProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newHandler(t)
			job := createMockJob(3, tt.vars)

			_, err := h.runner.Invoke(context.Background(), []byte(job.Variables), h.process)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
			assert.Empty(t, m.Reviews())
		})
	}
}
