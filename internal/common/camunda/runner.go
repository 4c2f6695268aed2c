package camunda

import (
	"context"
	"time"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/metrics"
	"nearby-market/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ExecuteFunc decodes raw job variables and runs one operation.
type ExecuteFunc func(ctx context.Context, variables []byte) (interface{}, error)

// JobRunner holds what every handler does around its own logic: input schema
// validation, timeout, metrics, completion and error reporting.
type JobRunner struct {
	taskType string
	timeout  time.Duration
	schema   *validation.Schema
	logger   logger.Logger
	errors   *apperrors.ErrorHandler
}

func NewJobRunner(taskType string, timeout time.Duration, schema *validation.Schema, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		taskType: taskType,
		timeout:  timeout,
		schema:   schema,
		logger:   log,
		errors:   apperrors.NewErrorHandler(log),
	}
}

// Run processes job and reports the outcome to the broker.
func (r *JobRunner) Run(client worker.JobClient, job entities.Job, fn ExecuteFunc) {
	defer metrics.TrackActive(r.taskType)()

	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	output, err := r.Invoke(ctx, []byte(job.Variables), fn)
	metrics.ObserveJob(r.taskType, start, err)

	if err != nil {
		r.errors.HandleJobError(ctx, client, job, err)
		return
	}
	r.completeJob(ctx, client, job, output)
}

// Invoke validates variables against the schema and calls fn. It never talks to
// the broker.
func (r *JobRunner) Invoke(ctx context.Context, variables []byte, fn ExecuteFunc) (interface{}, error) {
	if r.schema != nil {
		if result := r.schema.ValidateJSON(variables); !result.Valid {
			return nil, apperrors.NewInputValidationError(result.Summary())
		}
	}

	output, err := fn(ctx, variables)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewQueryTimeoutError(r.taskType)
		}
		return nil, err
	}
	return output, nil
}

func (r *JobRunner) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	r.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}
