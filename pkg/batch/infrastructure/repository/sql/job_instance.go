package sql

import (
	"context"
	"fmt"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

func (r *GormJobRepository) SaveJobInstance(ctx context.Context, instance *model.JobInstance) error {
	if instance.ParametersHash == "" {
		instance.ParametersHash = instance.Parameters.Hash()
	}
	if err := r.session(ctx).Create(fromDomainJobInstance(instance)).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("failed to save JobInstance (ID: %s)", instance.ID), err, false, false)
	}
	return nil
}

func (r *GormJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	var e JobInstanceEntity
	if err := take(r.session(ctx).Where("id = ?", id), &e, repository.ErrJobInstanceNotFound, "JobInstance"); err != nil {
		return nil, err
	}
	return toDomainJobInstance(&e), nil
}

func (r *GormJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	var e JobInstanceEntity
	query := r.session(ctx).Where("job_name = ? AND parameters_hash = ?", jobName, params.Hash())
	if err := take(query, &e, repository.ErrJobInstanceNotFound, "JobInstance"); err != nil {
		return nil, err
	}
	return toDomainJobInstance(&e), nil
}

func (r *GormJobRepository) FindLatestJobInstance(ctx context.Context, jobName string) (*model.JobInstance, error) {
	var e JobInstanceEntity
	query := r.session(ctx).Where("job_name = ?", jobName).Order("create_time DESC")
	if err := take(query, &e, repository.ErrJobInstanceNotFound, "JobInstance"); err != nil {
		return nil, err
	}
	return toDomainJobInstance(&e), nil
}

func (r *GormJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.session(ctx).Model(&JobInstanceEntity{}).Distinct("job_name").Order("job_name").Pluck("job_name", &names).Error
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to list job names", err, false, false)
	}
	return names, nil
}
