package updateshopdiscount

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-market/internal/catalog"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/models"
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
		ElementId:                "Activity_UpdateShopDiscount",
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
	m.AddShop(models.Shop{ID: "shop-1", OwnerID: "owner-1", Name: "Verma Pharmacy", Category: models.ShopCategoryPharmacy, IsActive: true})
	svc := catalog.NewService(catalog.Deps{Store: m, Logger: logger.NewTestLogger(t)})
	h, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig(), Catalog: svc, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h, m
}

func TestProcess_SavesDiscount(t *testing.T) {
	h, m := newHandler(t)

	job := createMockJob(1, map[string]interface{}{
		"userId":                     "owner-1",
		"generalDiscountDescription": "10% on all medicines",
		"hasGeneralDiscount":         true,
		"applyDiscountToAll":         false,
	})
	out, err := h.runner.Invoke(context.Background(), []byte(job.Variables), h.process)
	require.NoError(t, err)

	res := out.(*Output)
	assert.Equal(t, "shop-1", res.ShopID)
	assert.Equal(t, models.ShopDiscount{Description: "10% on all medicines", HasGeneralDiscount: true}, res.Discount)

	stored, err := m.GetShop(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.True(t, stored.HasGeneralDiscount)
	assert.False(t, stored.ApplyDiscountToAll)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		code  apperrors.ErrorCode
	}{
		{"owner without shop", Input{UserID: "someone"}, apperrors.ErrCodeShopNotFound},
		{"other owner's shop", Input{UserID: "owner-1", ShopID: "shop-2"}, apperrors.ErrCodeNotShopOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestProcess_MissingFlag(t *testing.T) {
	h, _ := newHandler(t)

	job := createMockJob(2, map[string]interface{}{"userId": "owner-1"})
	_, err := h.runner.Invoke(context.Background(), []byte(job.Variables), h.process)
	assert.Equal(t, apperrors.ErrCodeInputValidationFailed, apperrors.CodeOf(err))
}
