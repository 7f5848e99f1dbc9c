package errors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports failed Zeebe jobs from StandardErrors.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobOutcome is what the broker is told about a failed job.
type JobOutcome struct {
	// Throw raises bpmnErr.Code as a BPMN error instead of failing the job.
	Throw   bool
	Retries int32
}

// Decide fails the job with the lower of the broker's remaining retries and
// the code's budget; once neither has any left the error is thrown so the
// process can branch on it.
func Decide(job entities.Job, bpmnErr *BPMNError) JobOutcome {
	remaining := job.Retries - 1
	if bpmnErr.Retries <= 0 || remaining <= 0 {
		return JobOutcome{Throw: true}
	}
	retries := int32(bpmnErr.Retries)
	if remaining < retries {
		retries = remaining
	}
	return JobOutcome{Retries: retries}
}

// HandleJobError logs err and fails or throws the job accordingly.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	outcome := Decide(job, bpmnErr)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"errorCode":          string(stdErr.Code),
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"details":            stdErr.Details,
		"retries":            outcome.Retries,
		"thrown":             outcome.Throw,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	if outcome.Throw {
		return h.throw(ctx, client, job, bpmnErr)
	}
	return h.fail(ctx, client, job, bpmnErr, outcome.Retries)
}

func (h *ErrorHandler) fail(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, err = withVars.Send(ctx)
			return wrapSend("fail", job.Key, err)
		}
	}
	_, err := cmd.Send(ctx)
	return wrapSend("fail", job.Key, err)
}

func (h *ErrorHandler) throw(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, err = withVars.Send(ctx)
			return wrapSend("throw error for", job.Key, err)
		}
	}
	_, err := cmd.Send(ctx)
	return wrapSend("throw error for", job.Key, err)
}

func wrapSend(action string, key int64, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s job %d: %w", action, key, err)
}
