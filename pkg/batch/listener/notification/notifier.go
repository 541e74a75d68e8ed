// Package notification tells external systems about finished job executions.
package notification

import (
	"context"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// Notifier delivers job completion notifications.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error
}

// JobCompletionEvent is the payload of a job completion notification.
type JobCompletionEvent struct {
	JobName        string        `json:"jobName"`
	JobInstanceID  string        `json:"jobInstanceId"`
	JobExecutionID string        `json:"jobExecutionId"`
	Status         string        `json:"status"`
	ExitStatus     string        `json:"exitStatus"`
	RestartCount   int           `json:"restartCount"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        *time.Time    `json:"endTime,omitempty"`
	DurationMillis int64         `json:"durationMillis"`
	Failures       []string      `json:"failures,omitempty"`
	Steps          []StepSummary `json:"steps"`
}

type StepSummary struct {
	StepName   string `json:"stepName"`
	Status     string `json:"status"`
	ReadCount  int    `json:"readCount"`
	WriteCount int    `json:"writeCount"`
	SkipCount  int    `json:"skipCount"`
}

// NewJobCompletionEvent summarizes je.
func NewJobCompletionEvent(je *model.JobExecution) JobCompletionEvent {
	event := JobCompletionEvent{
		JobName:        je.JobName,
		JobInstanceID:  je.JobInstanceID,
		JobExecutionID: je.ID,
		Status:         string(je.Status),
		ExitStatus:     string(je.ExitStatus),
		RestartCount:   je.RestartCount,
		StartTime:      je.StartTime,
		EndTime:        je.EndTime,
		Failures:       je.Failures,
		Steps:          make([]StepSummary, 0, len(je.StepExecutions)),
	}
	if je.EndTime != nil {
		event.DurationMillis = je.EndTime.Sub(je.StartTime).Milliseconds()
	}
	for _, se := range je.StepExecutions {
		event.Steps = append(event.Steps, StepSummary{
			StepName:   se.StepName,
			Status:     string(se.Status),
			ReadCount:  se.ReadCount,
			WriteCount: se.WriteCount,
			SkipCount:  se.SkipCount(),
		})
	}
	return event
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	event := NewJobCompletionEvent(execution)
	msg := "Job Notification: Job '%s' (ID: %s) finished with Status: %s, ExitStatus: %s. Duration: %dms, Failures: %d"
	args := []any{event.JobName, event.JobExecutionID, event.Status, event.ExitStatus, event.DurationMillis, len(event.Failures)}
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof(msg, args...)
	} else {
		logger.Warnf(msg, args...)
	}
	return nil
}

// Listener forwards every finished job execution to a Notifier. Delivery
// failures are logged and never change the job outcome.
type Listener struct {
	notifier Notifier
}

func NewListener(notifier Notifier) *Listener {
	return &Listener{notifier: notifier}
}

func (l *Listener) BeforeJob(ctx context.Context, execution *model.JobExecution) {}

func (l *Listener) AfterJob(ctx context.Context, execution *model.JobExecution) {
	if err := l.notifier.NotifyJobCompletion(context.WithoutCancel(ctx), execution); err != nil {
		logger.Errorf("Notification: failed to notify completion of Job '%s' (ID: %s): %v", execution.JobName, execution.ID, err)
	}
}
