package metrics

import (
	"fmt"
	"testing"
	"time"

	apperrors "nearby-market/internal/common/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJob(t *testing.T) {
	const task = "metrics-test-task"

	ObserveJob(task, time.Now(), nil)
	ObserveJob(task, time.Now(), apperrors.NewShopNotFoundError("s-1"))
	ObserveJob(task, time.Now(), fmt.Errorf("plain"))

	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsCompleted.WithLabelValues(task)))
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsFailed.WithLabelValues(task, "SHOP_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsFailed.WithLabelValues(task, "INTERNAL_ERROR")))
}

func TestTrackActive(t *testing.T) {
	const task = "metrics-active-task"

	done := TrackActive(task)
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerJobsActive.WithLabelValues(task)))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(WorkerJobsActive.WithLabelValues(task)))
}
