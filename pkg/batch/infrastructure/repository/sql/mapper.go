package sql

import (
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// A zero StartTime is stored as NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func orEmpty(ec model.ExecutionContext) model.ExecutionContext {
	if ec == nil {
		return model.NewExecutionContext()
	}
	return ec
}

func fromDomainJobInstance(ji *model.JobInstance) *JobInstanceEntity {
	return &JobInstanceEntity{
		ID:             ji.ID,
		JobName:        ji.JobName,
		ParametersHash: ji.ParametersHash,
		Parameters:     ji.Parameters,
		CreateTime:     ji.CreateTime,
		Version:        ji.Version,
	}
}

func toDomainJobInstance(e *JobInstanceEntity) *model.JobInstance {
	return &model.JobInstance{
		ID:             e.ID,
		JobName:        e.JobName,
		ParametersHash: e.ParametersHash,
		Parameters:     e.Parameters,
		CreateTime:     e.CreateTime,
		Version:        e.Version,
	}
}

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	return &JobExecutionEntity{
		ID:               je.ID,
		JobInstanceID:    je.JobInstanceID,
		JobName:          je.JobName,
		Parameters:       je.Parameters,
		Status:           je.Status,
		ExitStatus:       je.ExitStatus,
		Failures:         failureColumn(je.Failures),
		StartTime:        nullableTime(je.StartTime),
		EndTime:          copyTime(je.EndTime),
		CreateTime:       je.CreateTime,
		LastUpdated:      je.LastUpdated,
		Version:          je.Version,
		RestartCount:     je.RestartCount,
		CurrentStepName:  je.CurrentStepName,
		ExecutionContext: orEmpty(je.ExecutionContext),
	}
}

// toDomainJobExecution leaves StepExecutions empty; the repository attaches them.
func toDomainJobExecution(e *JobExecutionEntity) *model.JobExecution {
	return &model.JobExecution{
		ID:               e.ID,
		JobInstanceID:    e.JobInstanceID,
		JobName:          e.JobName,
		Parameters:       e.Parameters,
		Status:           e.Status,
		ExitStatus:       e.ExitStatus,
		Failures:         append(model.FailureList{}, e.Failures...),
		StartTime:        valueTime(e.StartTime),
		EndTime:          copyTime(e.EndTime),
		CreateTime:       e.CreateTime,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
		RestartCount:     e.RestartCount,
		CurrentStepName:  e.CurrentStepName,
		ExecutionContext: orEmpty(e.ExecutionContext),
	}
}

// jobExecutionColumns are the columns UpdateJobExecution rewrites.
func jobExecutionColumns(e *JobExecutionEntity) map[string]any {
	return map[string]any{
		"status":            e.Status,
		"exit_status":       e.ExitStatus,
		"failures":          e.Failures,
		"start_time":        e.StartTime,
		"end_time":          e.EndTime,
		"last_updated":      e.LastUpdated,
		"version":           e.Version + 1,
		"restart_count":     e.RestartCount,
		"current_step_name": e.CurrentStepName,
		"execution_context": e.ExecutionContext,
	}
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	return &StepExecutionEntity{
		ID:               se.ID,
		JobExecutionID:   se.JobExecutionID,
		StepName:         se.StepName,
		Status:           se.Status,
		ExitStatus:       se.ExitStatus,
		Failures:         failureColumn(se.Failures),
		StartTime:        nullableTime(se.StartTime),
		EndTime:          copyTime(se.EndTime),
		LastUpdated:      se.LastUpdated,
		Version:          se.Version,
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		FilterCount:      se.FilterCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		ReadSkipCount:    se.ReadSkipCount,
		ProcessSkipCount: se.ProcessSkipCount,
		WriteSkipCount:   se.WriteSkipCount,
		ExecutionContext: orEmpty(se.ExecutionContext),
	}
}

// toDomainStepExecution leaves JobExecution nil; callers that load the parent attach it.
func toDomainStepExecution(e *StepExecutionEntity) *model.StepExecution {
	return &model.StepExecution{
		ID:               e.ID,
		JobExecutionID:   e.JobExecutionID,
		StepName:         e.StepName,
		Status:           e.Status,
		ExitStatus:       e.ExitStatus,
		Failures:         append(model.FailureList{}, e.Failures...),
		StartTime:        valueTime(e.StartTime),
		EndTime:          copyTime(e.EndTime),
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
		ReadCount:        e.ReadCount,
		WriteCount:       e.WriteCount,
		FilterCount:      e.FilterCount,
		CommitCount:      e.CommitCount,
		RollbackCount:    e.RollbackCount,
		ReadSkipCount:    e.ReadSkipCount,
		ProcessSkipCount: e.ProcessSkipCount,
		WriteSkipCount:   e.WriteSkipCount,
		ExecutionContext: orEmpty(e.ExecutionContext),
	}
}

func stepExecutionColumns(e *StepExecutionEntity) map[string]any {
	return map[string]any{
		"status":             e.Status,
		"exit_status":        e.ExitStatus,
		"failures":           e.Failures,
		"start_time":         e.StartTime,
		"end_time":           e.EndTime,
		"last_updated":       e.LastUpdated,
		"version":            e.Version + 1,
		"read_count":         e.ReadCount,
		"write_count":        e.WriteCount,
		"filter_count":       e.FilterCount,
		"commit_count":       e.CommitCount,
		"rollback_count":     e.RollbackCount,
		"read_skip_count":    e.ReadSkipCount,
		"process_skip_count": e.ProcessSkipCount,
		"write_skip_count":   e.WriteSkipCount,
		"execution_context":  e.ExecutionContext,
	}
}

func toDomainCheckpointData(e *CheckpointDataEntity) *model.CheckpointData {
	return &model.CheckpointData{
		StepExecutionID:  e.StepExecutionID,
		ExecutionContext: orEmpty(e.ExecutionContext),
		LastUpdated:      e.LastUpdated,
	}
}
