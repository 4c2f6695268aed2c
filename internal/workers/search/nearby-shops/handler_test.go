package nearbyshops

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/geo"
	"nearby-market/internal/models"
	"nearby-market/internal/search"
	"nearby-market/internal/store/storetest"
)

var newDelhi = geo.Point{Lat: 28.6139, Lng: 77.2090}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "test-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_NearbyShops",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}}
}

func seed() *storetest.Memory {
	m := storetest.NewMemory()
	for _, s := range []models.Shop{
		{ID: "kb", Name: "Karol Bagh Kirana", Latitude: 28.6519, Longitude: 77.1909, IsActive: true},
		{ID: "cp", Name: "Connaught Kirana", Latitude: 28.6315, Longitude: 77.2167, IsActive: true},
		{ID: "gg", Name: "Gurgaon Mart", Latitude: 28.4595, Longitude: 77.0266, IsActive: true},
		{ID: "shut", Name: "Shut Kirana", Latitude: 28.6140, Longitude: 77.2091, IsActive: false},
	} {
		s.Category = models.ShopCategoryGrocery
		m.AddShop(s)
	}
	return m
}

func newHandler(t *testing.T, m *storetest.Memory) *Handler {
	t.Helper()
	svc := search.NewService(m, nil, search.Options{Bounds: geo.DefaultRadiusBounds, DefaultOrigin: newDelhi}, nil, logger.NewTestLogger(t))
	h, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig(), Search: svc, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

func shopIDs(out *Output) []string {
	ids := make([]string, 0, len(out.Shops))
	for _, s := range out.Shops {
		ids = append(ids, s.Shop.ID)
	}
	return ids
}

func TestExecute_Radius(t *testing.T) {
	tests := []struct {
		name       string
		radius     float64
		wantRadius float64
		wantShops  []string
	}{
		{"default radius", 0, 5, []string{"cp", "kb"}},
		{"tight radius", 3, 3, []string{"cp"}},
		{"snapped to step", 3.3, 3.5, []string{"cp"}},
		{"clamped to max", 40, 10, []string{"cp", "kb"}},
		{"clamped to min", 0.2, 1, []string{}},
	}
	h := newHandler(t, seed())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng := newDelhi.Lat, newDelhi.Lng
			out, err := h.Execute(context.Background(), &Input{Latitude: &lat, Longitude: &lng, RadiusKm: tt.radius})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRadius, out.RadiusKm)
			assert.Equal(t, tt.wantShops, shopIDs(out))
			assert.Equal(t, len(tt.wantShops), out.Count)
		})
	}
}

func TestExecute_DirectionsAndDistance(t *testing.T) {
	h := newHandler(t, seed())

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	require.Len(t, out.Shops, 2)
	assert.Equal(t, newDelhi, out.Origin)
	assert.InDelta(t, 2.1, out.Shops[0].DistanceKm, 0.1)
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=28.6315,77.2167", out.Shops[0].DirectionsURL)
	assert.Less(t, out.Shops[0].DistanceKm, out.Shops[1].DistanceKm)
}

func TestProcess_Validation(t *testing.T) {
	h := newHandler(t, seed())

	tests := []struct {
		name string
		vars map[string]interface{}
	}{
		{"latitude without longitude", map[string]interface{}{"latitude": 28.6}},
		{"longitude out of range", map[string]interface{}{"latitude": 28.6, "longitude": 200}},
		{"negative radius", map[string]interface{}{"radiusKm": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := createMockJob(7, tt.vars)
			_, err := h.runner.Invoke(context.Background(), []byte(job.Variables), h.process)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInputValidationFailed, apperrors.CodeOf(err))
		})
	}
}

func TestProcess_EmptyVariablesUseDefaults(t *testing.T) {
	h := newHandler(t, seed())
	job := createMockJob(8, map[string]interface{}{})

	out, err := h.runner.Invoke(context.Background(), []byte(job.Variables), h.process)
	require.NoError(t, err)
	assert.Equal(t, 2, out.(*Output).Count)
}

func TestExecute_StoreFailure(t *testing.T) {
	m := seed()
	m.Fail["ListActiveShops"] = errors.New("connection reset")
	h := newHandler(t, m)

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.CodeOf(err))
}
