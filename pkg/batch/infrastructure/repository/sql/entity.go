package sql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// JobInstanceEntity maps batch_job_instance.
type JobInstanceEntity struct {
	ID             string              `gorm:"column:id;primaryKey"`
	JobName        string              `gorm:"column:job_name"`
	ParametersHash string              `gorm:"column:parameters_hash"`
	Parameters     model.JobParameters `gorm:"column:parameters"`
	CreateTime     time.Time           `gorm:"column:create_time"`
	Version        int                 `gorm:"column:version"`
}

func (JobInstanceEntity) TableName() string { return "batch_job_instance" }

// JobExecutionEntity maps batch_job_execution. Step executions are loaded separately.
type JobExecutionEntity struct {
	ID               string                 `gorm:"column:id;primaryKey"`
	JobInstanceID    string                 `gorm:"column:job_instance_id"`
	JobName          string                 `gorm:"column:job_name"`
	Parameters       model.JobParameters    `gorm:"column:parameters"`
	Status           model.BatchStatus      `gorm:"column:status"`
	ExitStatus       model.ExitStatus       `gorm:"column:exit_status"`
	Failures         failureColumn          `gorm:"column:failures"`
	StartTime        *time.Time             `gorm:"column:start_time"`
	EndTime          *time.Time             `gorm:"column:end_time"`
	CreateTime       time.Time              `gorm:"column:create_time"`
	LastUpdated      time.Time              `gorm:"column:last_updated"`
	Version          int                    `gorm:"column:version"`
	RestartCount     int                    `gorm:"column:restart_count"`
	CurrentStepName  string                 `gorm:"column:current_step_name"`
	ExecutionContext model.ExecutionContext `gorm:"column:execution_context"`
}

func (JobExecutionEntity) TableName() string { return "batch_job_execution" }

// StepExecutionEntity maps batch_step_execution.
type StepExecutionEntity struct {
	ID               string                 `gorm:"column:id;primaryKey"`
	JobExecutionID   string                 `gorm:"column:job_execution_id"`
	StepName         string                 `gorm:"column:step_name"`
	Status           model.BatchStatus      `gorm:"column:status"`
	ExitStatus       model.ExitStatus       `gorm:"column:exit_status"`
	Failures         failureColumn          `gorm:"column:failures"`
	StartTime        *time.Time             `gorm:"column:start_time"`
	EndTime          *time.Time             `gorm:"column:end_time"`
	LastUpdated      time.Time              `gorm:"column:last_updated"`
	Version          int                    `gorm:"column:version"`
	ReadCount        int                    `gorm:"column:read_count"`
	WriteCount       int                    `gorm:"column:write_count"`
	FilterCount      int                    `gorm:"column:filter_count"`
	CommitCount      int                    `gorm:"column:commit_count"`
	RollbackCount    int                    `gorm:"column:rollback_count"`
	ReadSkipCount    int                    `gorm:"column:read_skip_count"`
	ProcessSkipCount int                    `gorm:"column:process_skip_count"`
	WriteSkipCount   int                    `gorm:"column:write_skip_count"`
	ExecutionContext model.ExecutionContext `gorm:"column:execution_context"`
}

func (StepExecutionEntity) TableName() string { return "batch_step_execution" }

// CheckpointDataEntity maps batch_checkpoint_data.
type CheckpointDataEntity struct {
	StepExecutionID  string                 `gorm:"column:step_execution_id;primaryKey"`
	ExecutionContext model.ExecutionContext `gorm:"column:execution_context"`
	LastUpdated      time.Time              `gorm:"column:last_updated"`
}

func (CheckpointDataEntity) TableName() string { return "batch_checkpoint_data" }

// failureColumn stores a FailureList as a JSON array.
type failureColumn model.FailureList

func (f failureColumn) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(f))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (f *failureColumn) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*f = failureColumn{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for failures: %T", value)
	}
	if len(b) == 0 {
		*f = failureColumn{}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("failed to decode failures column: %w", err)
	}
	*f = list
	return nil
}
