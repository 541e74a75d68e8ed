package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	exception "github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// Exit codes returned by SimpleJobLauncher.Run.
const (
	ExitCodeCompleted      = 0
	ExitCodeFailed         = 1
	ExitCodeAlreadyRunning = 2
)

var (
	// ErrJobExecutionAlreadyRunning is returned when the latest execution of the instance is still running.
	ErrJobExecutionAlreadyRunning = errors.New("job execution already running")
	// ErrJobInstanceAlreadyComplete is returned when the instance already completed.
	ErrJobInstanceAlreadyComplete = errors.New("job instance already complete")
	// ErrJobExecutionNotRunning is returned by Stop for an execution this launcher is not running.
	ErrJobExecutionNotRunning = errors.New("job execution not running")
)

func init() {
	exception.RegisterErrorType("ErrJobExecutionAlreadyRunning", ErrJobExecutionAlreadyRunning)
	exception.RegisterErrorType("ErrJobInstanceAlreadyComplete", ErrJobInstanceAlreadyComplete)
	exception.RegisterErrorType("ErrJobExecutionNotRunning", ErrJobExecutionNotRunning)
}

// incrementable is implemented by jobs that can derive the parameters of their next instance.
type incrementable interface {
	Incrementer() port.JobParametersIncrementer
}

// SimpleJobLauncher resolves the JobInstance for a launch request, creates its
// JobExecution and runs the job on the calling goroutine.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	registry      *JobRegistry

	// launchMu serializes the instance lookup through the save of the new
	// execution, so concurrent launches of one instance cannot both start.
	launchMu sync.Mutex

	mu      sync.Mutex
	running map[string]*model.JobExecution
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

func NewSimpleJobLauncher(repo repository.JobRepository, registry *JobRegistry) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: repo,
		registry:      registry,
		running:       make(map[string]*model.JobExecution),
	}
}

// Launch implements JobLauncher.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	job, err := l.registry.Get(jobName)
	if err != nil {
		return nil, err
	}

	jobExecution, err := l.createJobExecution(ctx, jobName, params)
	if err != nil {
		return nil, err
	}

	l.register(jobExecution)
	defer l.unregister(jobExecution.ID)

	logger.Infof("Launching Job '%s' (Execution ID: %s, restart count: %d) with parameters %s.",
		jobName, jobExecution.ID, jobExecution.RestartCount, params)
	runErr := job.Run(ctx, jobExecution)
	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s.", jobName, jobExecution.ID, jobExecution.Status)
	return jobExecution, runErr
}

// createJobExecution finds or creates the JobInstance and saves a new JobExecution for it.
// A FAILED, STOPPED or ABANDONED latest execution makes the new one a restart.
func (l *SimpleJobLauncher) createJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	l.launchMu.Lock()
	defer l.launchMu.Unlock()

	jobInstance, err := l.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	switch {
	case errors.Is(err, repository.ErrJobInstanceNotFound):
		jobInstance = model.NewJobInstance(jobName, params)
		if err := l.jobRepository.SaveJobInstance(ctx, jobInstance); err != nil {
			return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to save JobInstance for Job '%s'", jobName), err, false, false)
		}
		logger.Debugf("Created JobInstance (ID: %s) for Job '%s'.", jobInstance.ID, jobName)
	case err != nil:
		return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to look up JobInstance for Job '%s'", jobName), err, false, false)
	}

	jobExecution := model.NewJobExecution(jobInstance, params)

	last, err := l.jobRepository.FindLatestJobExecution(ctx, jobInstance.ID)
	switch {
	case errors.Is(err, repository.ErrJobExecutionNotFound):
	case err != nil:
		return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to load the latest JobExecution of JobInstance %s", jobInstance.ID), err, false, false)
	case last.Status.IsRunning():
		return nil, fmt.Errorf("Job '%s' (Execution ID: %s, status %s): %w", jobName, last.ID, last.Status, ErrJobExecutionAlreadyRunning)
	case last.Status == model.BatchStatusCompleted:
		return nil, fmt.Errorf("Job '%s' (Instance ID: %s): %w", jobName, jobInstance.ID, ErrJobInstanceAlreadyComplete)
	case last.Status.IsRestartable():
		jobExecution.RestartCount = last.RestartCount + 1
		jobExecution.ExecutionContext = last.ExecutionContext.Copy()
		logger.Infof("Restarting Job '%s' from JobExecution %s (status %s).", jobName, last.ID, last.Status)
	default:
		return nil, exception.NewBatchErrorf("job_launcher", "Job '%s': latest JobExecution %s has status %s and cannot be restarted", jobName, last.ID, last.Status)
	}

	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to save JobExecution for Job '%s'", jobName), err, false, false)
	}
	return jobExecution, nil
}

// Run launches jobName and maps the outcome to a process exit code.
func (l *SimpleJobLauncher) Run(ctx context.Context, jobName string, params model.JobParameters) int {
	jobExecution, err := l.Launch(ctx, jobName, params)
	return exitCode(jobName, jobExecution, err)
}

// StartNextInstance launches a new instance of jobName with the parameters its incrementer
// derives from the latest instance. Entries of params override the derived ones.
func (l *SimpleJobLauncher) StartNextInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	next, err := l.NextParameters(ctx, jobName, params)
	if err != nil {
		return nil, err
	}
	return l.Launch(ctx, jobName, next)
}

// RunNextInstance is StartNextInstance mapped to an exit code.
func (l *SimpleJobLauncher) RunNextInstance(ctx context.Context, jobName string, params model.JobParameters) int {
	jobExecution, err := l.StartNextInstance(ctx, jobName, params)
	return exitCode(jobName, jobExecution, err)
}

// NextParameters computes the parameters StartNextInstance would launch with.
func (l *SimpleJobLauncher) NextParameters(ctx context.Context, jobName string, params model.JobParameters) (model.JobParameters, error) {
	job, err := l.registry.Get(jobName)
	if err != nil {
		return model.JobParameters{}, err
	}
	inc, ok := job.(incrementable)
	if !ok || inc.Incrementer() == nil {
		return model.JobParameters{}, exception.NewBatchErrorf("job_launcher", "Job '%s' has no JobParametersIncrementer", jobName)
	}

	base := model.NewJobParameters()
	latest, err := l.jobRepository.FindLatestJobInstance(ctx, jobName)
	switch {
	case err == nil:
		base = latest.Parameters
	case !errors.Is(err, repository.ErrJobInstanceNotFound):
		return model.JobParameters{}, exception.NewBatchError("job_launcher", fmt.Sprintf("failed to load the latest JobInstance of Job '%s'", jobName), err, false, false)
	}
	return model.NewJobParametersBuilder(inc.Incrementer().GetNext(base), params).ToJobParameters(), nil
}

// Stop requests a stop of an execution this launcher is running.
// The job observes the request at its next chunk or tasklet boundary.
func (l *SimpleJobLauncher) Stop(executionID string) error {
	l.mu.Lock()
	jobExecution, ok := l.running[executionID]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("JobExecution %s: %w", executionID, ErrJobExecutionNotRunning)
	}
	jobExecution.RequestStop()
	logger.Infof("Stop requested for JobExecution (ID: %s).", executionID)
	return nil
}

// StopAll requests a stop of every running execution and returns their IDs.
func (l *SimpleJobLauncher) StopAll() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.running))
	for id, jobExecution := range l.running {
		jobExecution.RequestStop()
		ids = append(ids, id)
	}
	return ids
}

// IsRunning reports whether this launcher is running the execution.
func (l *SimpleJobLauncher) IsRunning(executionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[executionID]
	return ok
}

func (l *SimpleJobLauncher) register(jobExecution *model.JobExecution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running[jobExecution.ID] = jobExecution
	logger.Debugf("Registered stop handle for JobExecution (ID: %s).", jobExecution.ID)
}

func (l *SimpleJobLauncher) unregister(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.running, executionID)
	logger.Debugf("Unregistered stop handle for JobExecution (ID: %s).", executionID)
}

func exitCode(jobName string, jobExecution *model.JobExecution, err error) int {
	switch {
	case errors.Is(err, ErrJobExecutionAlreadyRunning):
		logger.Warnf("Job '%s' was not launched: %v", jobName, err)
		return ExitCodeAlreadyRunning
	case jobExecution == nil:
		logger.Errorf("Job '%s' could not be launched: %v", jobName, err)
		return ExitCodeFailed
	case jobExecution.Status == model.BatchStatusCompleted:
		return ExitCodeCompleted
	default:
		if err != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) ended with status %s: %v", jobName, jobExecution.ID, jobExecution.Status, err)
		}
		return ExitCodeFailed
	}
}
