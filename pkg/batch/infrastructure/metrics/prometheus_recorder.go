package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// PrometheusRecorder records into a private prometheus.Registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	jobDurationSeconds  *prometheus.HistogramVec
	jobStatusCounter    *prometheus.CounterVec
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	itemReadCounter     *prometheus.CounterVec
	itemWriteCounter    *prometheus.CounterVec
	itemFilterCounter   *prometheus.CounterVec
	chunkCommitCounter  *prometheus.CounterVec
	chunkRollbackCount  *prometheus.CounterVec
	itemSkipCounter     *prometheus.CounterVec
	retryCounter        *prometheus.CounterVec
	operationSeconds    *prometheus.HistogramVec
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the batch collectors under namespace, plus the
// Go runtime and process collectors.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		}, labels)
	}

	r := &PrometheusRecorder{
		registry:            registry,
		jobDurationSeconds:  histogram("job_duration_seconds", "Duration of job executions.", "job_name", "status", "exit_status"),
		jobStatusCounter:    counter("job_status_total", "Job executions by final status.", "job_name", "status"),
		stepDurationSeconds: histogram("step_duration_seconds", "Duration of step executions.", "job_name", "step_name", "status"),
		stepStatusCounter:   counter("step_status_total", "Step executions by final status.", "job_name", "step_name", "status"),
		itemReadCounter:     counter("item_read_total", "Items read.", "job_name", "step_name"),
		itemWriteCounter:    counter("item_write_total", "Items written.", "job_name", "step_name"),
		itemFilterCounter:   counter("item_filter_total", "Items dropped by processors.", "job_name", "step_name"),
		chunkCommitCounter:  counter("chunk_commit_total", "Committed chunks.", "job_name", "step_name"),
		chunkRollbackCount:  counter("chunk_rollback_total", "Rolled back chunks.", "job_name", "step_name"),
		itemSkipCounter:     counter("item_skip_total", "Skipped items by phase.", "job_name", "step_name", "phase"),
		retryCounter:        counter("retry_total", "Retried tasklet invocations.", "job_name", "step_name"),
		operationSeconds:    histogram("operation_duration_seconds", "Duration of named operations.", "name"),
	}
	registry.MustRegister(
		r.jobDurationSeconds, r.jobStatusCounter, r.stepDurationSeconds, r.stepStatusCounter,
		r.itemReadCounter, r.itemWriteCounter, r.itemFilterCounter, r.chunkCommitCounter,
		r.chunkRollbackCount, r.itemSkipCounter, r.retryCounter, r.operationSeconds,
	)
	logger.Debugf("Metrics: Prometheus recorder initialized (namespace %q).", namespace)
	return r
}

// Registry returns the registry for exposition or tests.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// jobName reads the job name from the step execution the engine put in ctx.
func jobName(ctx context.Context) string {
	if se, ok := port.StepExecutionFromContext(ctx); ok && se.JobExecution != nil {
		return se.JobExecution.JobName
	}
	return ""
}

func stepJobName(se *model.StepExecution) string {
	if se.JobExecution != nil {
		return se.JobExecution.JobName
	}
	return ""
}

func elapsed(start time.Time, end *time.Time) (float64, bool) {
	if end == nil || start.IsZero() {
		return 0, false
	}
	return end.Sub(start).Seconds(), true
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, string(execution.Status)).Inc()
	if d, ok := elapsed(execution.StartTime, execution.EndTime); ok {
		r.jobDurationSeconds.WithLabelValues(execution.JobName, string(execution.Status), string(execution.ExitStatus)).Observe(d)
	}
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	job := stepJobName(execution)
	r.stepStatusCounter.WithLabelValues(job, execution.StepName, string(execution.Status)).Inc()
	if d, ok := elapsed(execution.StartTime, execution.EndTime); ok {
		r.stepDurationSeconds.WithLabelValues(job, execution.StepName, string(execution.Status)).Observe(d)
	}
}

func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.itemReadCounter.WithLabelValues(jobName(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.itemFilterCounter.WithLabelValues(jobName(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemWriteCounter.WithLabelValues(jobName(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemSkip(ctx context.Context, stepName string, phase string) {
	r.itemSkipCounter.WithLabelValues(jobName(ctx), stepName, phase).Inc()
}

// RecordRetry does not label by reason: error messages would make the label set unbounded.
func (r *PrometheusRecorder) RecordRetry(ctx context.Context, stepName string, reason string) {
	r.retryCounter.WithLabelValues(jobName(ctx), stepName).Inc()
}

func (r *PrometheusRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.chunkCommitCounter.WithLabelValues(jobName(ctx), stepName).Inc()
}

func (r *PrometheusRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.chunkRollbackCount.WithLabelValues(jobName(ctx), stepName).Inc()
}

// RecordDuration ignores tags for the same reason RecordRetry ignores reasons.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}
