package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/serialization"

	"go.uber.org/fx"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// LoadConfig builds the configuration in four layers: NewConfig defaults, the
// .env file, the YAML document (after ${VAR} expansion) and finally environment
// overrides named after the yaml path, e.g. BATCH_CHUNK_SIZE or SYSTEM_LOGGING_LEVEL.
func LoadConfig(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embedded, NewOsEnvironmentExpander())
}

// LoadFile reads the YAML document at path and delegates to LoadConfig.
func LoadFile(envFilePath, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to read config file '%s'", path, err)
	}
	return LoadConfig(envFilePath, data)
}

func loadConfig(envFilePath string, embedded EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	if len(embedded) > 0 {
		expanded, err := expander.Expand(embedded)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to expand environment variables in config", err, false, false)
		}
		// yaml.v3 leaves fields absent from the document untouched, so defaults survive.
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config and applies its
// process-wide settings: log level and format, and the masked parameter keys.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	expander := params.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, expander)
	if err != nil {
		return nil, err
	}
	Apply(cfg)
	return cfg, nil
}

// Apply installs the logging and masking settings of cfg.
func Apply(cfg *Config) {
	logger.Configure(logger.Options{
		Level:  cfg.System.Logging.Level,
		Format: cfg.System.Logging.Format,
	})
	serialization.SetMaskedParameterKeys(cfg.Security.MaskedParameterKeys)
	logger.Infof("Log level set to: %s", cfg.System.Logging.Level)
}

func validate(cfg *Config) error {
	if cfg.Batch.ChunkSize <= 0 {
		return exception.NewBatchErrorf(moduleName, "batch.chunk_size must be positive, got %d", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.Retry.MaxAttempts < 1 {
		return exception.NewBatchErrorf(moduleName, "batch.retry.max_attempts must be at least 1, got %d", cfg.Batch.Retry.MaxAttempts)
	}
	if cfg.Batch.Skip.SkipLimit < 0 {
		return exception.NewBatchErrorf(moduleName, "batch.skip.skip_limit must not be negative, got %d", cfg.Batch.Skip.SkipLimit)
	}
	switch cfg.Infrastructure.Repository.Type {
	case RepositoryTypeInMemory, RepositoryTypeSQL:
	default:
		return exception.NewBatchErrorf(moduleName, "unknown infrastructure.repository.type '%s'", cfg.Infrastructure.Repository.Type)
	}
	if err := checkExceptionClasses(cfg.Batch.Retry.RetryableExceptions, "batch.retry"); err != nil {
		return err
	}
	return checkExceptionClasses(cfg.Batch.Skip.SkippableExceptions, "batch.skip")
}

// checkExceptionClasses verifies every configured error type name is registered.
func checkExceptionClasses(classNames []string, configType string) error {
	for _, name := range classNames {
		if !exception.IsErrorTypeRegistered(name) {
			return exception.NewBatchErrorf(moduleName, "%s configuration references unknown exception class '%s'", configType, name)
		}
	}
	return nil
}

// loadStructFromEnv walks val and overrides each yaml-tagged field from the
// environment variable named after its upper-cased path.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := yamlName(fieldType)
		if tag == "" {
			continue
		}
		envVarName := strings.ToUpper(prefix + tag)

		switch {
		case field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}):
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct:
			if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv fills map entries from variables of the form
// <PREFIX><KEY>_<FIELD>, e.g. INFRASTRUCTURE_STORAGE_DEFAULT_BASE_DIR.
// The key must not itself contain an underscore.
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		name, value, ok := strings.Cut(strings.TrimPrefix(env, prefix), "=")
		if !ok {
			continue
		}
		key, fieldName, ok := strings.Cut(name, "_")
		if !ok || key == "" || fieldName == "" {
			continue
		}
		key = strings.ToLower(key)

		elem := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(reflect.ValueOf(key)); existing.IsValid() {
			elem.Set(existing)
		}
		if err := setStructFieldFromEnv(elem, fieldName, value); err != nil {
			return fmt.Errorf("failed to set '%s' from env var '%s': %w", fieldName, prefix+name, err)
		}
		mapField.SetMapIndex(reflect.ValueOf(key), elem)
	}
	return nil
}

func setStructFieldFromEnv(structVal reflect.Value, fieldName, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		if tag := yamlName(typ.Field(i)); tag != "" && strings.EqualFold(tag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p))
			}
		}
		field.Set(out)
	}
	return nil
}
