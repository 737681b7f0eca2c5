package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/procurehub/procurehub/internal/jobs"
	"github.com/procurehub/procurehub/internal/procurement"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ProcurementReindexPayload contains options for the reindex job. Force
// invalidates cached listings even when the dataset is unchanged.
type ProcurementReindexPayload struct {
	RequestID string `json:"request_id"`
	Force     bool   `json:"force"`
}

// NewProcurementReindexTask builds a reindex task tagged with a fresh request ID.
func NewProcurementReindexTask(force bool) (*asynq.Task, error) {
	return newProcurementReindexTask(ProcurementReindexPayload{RequestID: uuid.NewString(), Force: force})
}

// ScheduledProcurementReindex registers a periodic reindex. Each run gets its
// request ID when it is handled.
func ScheduledProcurementReindex(spec string) (CronRegistration, error) {
	task, err := newProcurementReindexTask(ProcurementReindexPayload{})
	if err != nil {
		return CronRegistration{}, err
	}
	return CronRegistration{Spec: spec, Task: task}, nil
}

func newProcurementReindexTask(payload ProcurementReindexPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcurementReindex, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// Reindexer reloads the dataset and reports how many records it holds.
type Reindexer interface {
	Reindex(ctx context.Context, force bool) (procurement.ReindexResult, error)
}

// ProcurementReindexJob handles TaskProcurementReindex tasks.
type ProcurementReindexJob struct {
	Reindexer Reindexer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewProcurementReindexJob wires dependencies for the reindex handler.
func NewProcurementReindexJob(reindexer Reindexer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ProcurementReindexJob {
	return &ProcurementReindexJob{Reindexer: reindexer, Logger: logger, Metrics: metrics}
}

// Handle reloads the dataset and bumps the listing cache version.
func (j *ProcurementReindexJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reindexer == nil {
		return errors.New("procurement reindex: handler not configured")
	}
	var payload ProcurementReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("procurement reindex: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RequestID == "" {
		payload.RequestID = uuid.NewString()
	}

	tracker := j.metrics().Track(TaskProcurementReindex)
	logger := j.logger().With(slog.String("request_id", payload.RequestID), slog.Bool("force", payload.Force))

	result, err := j.Reindexer.Reindex(ctx, payload.Force)
	if err != nil {
		logger.Error("procurement reindex failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().SetRecords(TaskProcurementReindex, result.Records)
	logger.Info("procurement reindex complete",
		slog.Int("records", result.Records),
		slog.Bool("invalidated", result.Invalidated),
	)
	return tracker.End(nil)
}

func (j *ProcurementReindexJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskProcurementReindex))
	}
	return slog.Default().With(slog.String("job", TaskProcurementReindex))
}

func (j *ProcurementReindexJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
