package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/kangwooc/spring-batch/pkg/batch/core/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, 10, cfg.Batch.ChunkSize)
	assert.Equal(t, 3, cfg.Batch.Retry.MaxAttempts)
	assert.Equal(t, 0, cfg.Batch.Skip.SkipLimit)
	assert.Equal(t, config.RepositoryTypeInMemory, cfg.Infrastructure.Repository.Type)
	assert.Equal(t, "INFO", cfg.System.Logging.Level)
	assert.Equal(t, "none", cfg.Infrastructure.Tracing.Exporter)
	assert.Equal(t, "prometheus", cfg.Infrastructure.Metrics.Type)
	assert.Contains(t, cfg.Infrastructure.Storage, config.DefaultStorageName)
	assert.NotEmpty(t, cfg.Security.MaskedParameterKeys)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("OUTPUT_BASE", "/tmp/out")
	yaml := []byte(`
batch:
  chunk_size: 25
  skip:
    skip_limit: 2
    skippable_exceptions: ["io.ErrUnexpectedEOF"]
system:
  logging:
    level: DEBUG
infrastructure:
  storage:
    output:
      type: local
      base_dir: ${OUTPUT_BASE}
`)
	cfg, err := config.LoadConfig("", yaml)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Batch.ChunkSize)
	assert.Equal(t, 2, cfg.Batch.Skip.SkipLimit)
	assert.Equal(t, 3, cfg.Batch.Retry.MaxAttempts, "absent keys keep their defaults")
	assert.Equal(t, "DEBUG", cfg.System.Logging.Level)
	assert.Equal(t, "/tmp/out", cfg.Infrastructure.Storage["output"].BaseDir)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BATCH_CHUNK_SIZE", "7")
	t.Setenv("BATCH_RETRY_RETRYABLE_EXCEPTIONS", "io.EOF, io.ErrUnexpectedEOF")
	t.Setenv("INFRASTRUCTURE_REPOSITORY_TYPE", "sql")
	t.Setenv("INFRASTRUCTURE_REPOSITORY_DATABASE_PORT", "5432")
	t.Setenv("INFRASTRUCTURE_STORAGE_REMOTE_TYPE", "ftp")
	t.Setenv("INFRASTRUCTURE_STORAGE_REMOTE_TIMEOUT", "3s")

	cfg, err := config.LoadConfig("", []byte(`batch: {chunk_size: 20}`))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Batch.ChunkSize)
	assert.Equal(t, []string{"io.EOF", "io.ErrUnexpectedEOF"}, cfg.Batch.Retry.RetryableExceptions)
	assert.Equal(t, config.RepositoryTypeSQL, cfg.Infrastructure.Repository.Type)
	assert.Equal(t, 5432, cfg.Infrastructure.Repository.Database.Port)
	assert.Equal(t, "ftp", cfg.Infrastructure.Storage["remote"].Type)
	assert.Equal(t, 3*time.Second, cfg.Infrastructure.Storage["remote"].Timeout)
}

func TestLoadConfig_Validation(t *testing.T) {
	_, err := config.LoadConfig("", []byte(`batch: {chunk_size: -1}`))
	assert.Error(t, err)

	_, err = config.LoadConfig("", []byte(`infrastructure: {repository: {type: redis}}`))
	assert.Error(t, err)

	_, err = config.LoadConfig("", []byte(`batch: {skip: {skippable_exceptions: [NoSuchError]}}`))
	assert.ErrorContains(t, err, "NoSuchError")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := config.LoadConfig("", []byte("batch: [unclosed"))
	assert.Error(t, err)
}

func TestOsEnvironmentExpander_Fallbacks(t *testing.T) {
	t.Setenv("BATCH_SET", "primary")
	t.Setenv("BATCH_EMPTY", "")

	out, err := config.NewOsEnvironmentExpander().Expand([]byte("a=${BATCH_SET:-x} b=${BATCH_EMPTY:-fallback} c=${BATCH_UNSET:-/var/batch} d=${BATCH_EMPTY} e=$BATCH_UNSET"))
	require.NoError(t, err)
	assert.Equal(t, "a=primary b=fallback c=/var/batch d= e=", string(out))
}

func TestModule_ProvidesConfigFromEmbeddedDocument(t *testing.T) {
	var cfg *config.Config
	var logging *config.LoggingConfig
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.EmbeddedConfig("batch:\n  job_name: zombieProcessCleanupJob\nsystem:\n  logging:\n    level: WARN\n")),
		config.Module,
		fx.Populate(&cfg, &logging),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, "zombieProcessCleanupJob", cfg.Batch.JobName)
	assert.Equal(t, "WARN", logging.Level)
}
