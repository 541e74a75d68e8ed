package scope_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

type terminator struct {
	ID            string
	TargetCount   int
	ExecutionDate time.Time
	StartTime     time.Time
}

func execution(t *testing.T, args ...string) *model.JobExecution {
	t.Helper()
	params, err := model.ParseJobParameters(args)
	require.NoError(t, err)
	return model.NewJobExecution(model.NewJobInstance("job", params), params)
}

func terminatorDefinition(builds *int) scope.Definition {
	return scope.Definition{
		Name: "terminatorTasklet",
		Kind: scope.Step,
		Placeholders: []scope.Placeholder{
			scope.Param("terminatorId", scope.String),
			scope.Param("targetCount", scope.Int),
			scope.Param("executionDate", scope.Date),
			scope.Param("startTime", scope.DateTime),
		},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			*builds++
			return &terminator{
				ID:            v.String("terminatorId"),
				TargetCount:   v.Int("targetCount"),
				ExecutionDate: v.Date("executionDate"),
				StartTime:     v.DateTime("startTime"),
			}, nil
		},
	}
}

func TestRegistry_ResolveStepScopedBindsTypedValues(t *testing.T) {
	builds := 0
	reg := scope.NewRegistry(nil)
	require.NoError(t, reg.Register(terminatorDefinition(&builds)))

	je := execution(t, "terminatorId=KILLER-9", "targetCount=5,long", "executionDate=2024-01-01,date", "startTime=2024-01-01 14:30:00,datetime")
	provider := scope.StepScoped[*terminator](reg, "terminatorTasklet")

	first, err := provider(context.Background(), je, model.NewStepExecution("s1", je))
	require.NoError(t, err)
	assert.Equal(t, "KILLER-9", first.ID)
	assert.Equal(t, 5, first.TargetCount)
	assert.Equal(t, 2024, first.ExecutionDate.Year())
	assert.Equal(t, 30, first.StartTime.Minute())

	second, err := provider(context.Background(), je, model.NewStepExecution("s2", je))
	require.NoError(t, err)
	assert.NotSame(t, first, second, "step scope builds per step execution")
	assert.Equal(t, 2, builds)
}

func TestRegistry_MissingRequiredValueFailsBeforeBuild(t *testing.T) {
	builds := 0
	reg := scope.NewRegistry(nil)
	require.NoError(t, reg.Register(terminatorDefinition(&builds)))

	je := execution(t, "terminatorId=KILLER-9")
	_, err := reg.Resolve(context.Background(), "terminatorTasklet", scope.Step, je, model.NewStepExecution("s", je))

	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrParameterBinding)
	var pbe *exception.ParameterBindingError
	require.True(t, errors.As(err, &pbe))
	assert.Equal(t, "targetCount", pbe.Placeholder)
	assert.Equal(t, 0, builds)
}

func TestRegistry_CoercionFailure(t *testing.T) {
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name:         "counter",
		Placeholders: []scope.Placeholder{scope.Param("targetCount", scope.Int)},
		Build:        func(ctx context.Context, v scope.Values) (any, error) { return v.Int("targetCount"), nil },
	})

	je := execution(t, "targetCount=many")
	_, err := reg.Resolve(context.Background(), "counter", scope.Step, je, model.NewStepExecution("s", je))
	assert.True(t, exception.IsParameterBindingError(err))
}

func TestRegistry_EnumAndOptional(t *testing.T) {
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name: "quest",
		Placeholders: []scope.Placeholder{
			scope.Param("questDifficulty", scope.String).OneOf("EASY", "NORMAL", "HARD", "EXTREME"),
			scope.Param("bonus", scope.Long).Optional(int64(7)),
		},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			return v.Enum("questDifficulty") + ":" + time.Duration(v.Long("bonus")).String(), nil
		},
	})

	je := execution(t, "questDifficulty=HARD")
	got, err := reg.Resolve(context.Background(), "quest", scope.Step, je, model.NewStepExecution("s", je))
	require.NoError(t, err)
	assert.Equal(t, "HARD:7ns", got)

	je = execution(t, "questDifficulty=IMPOSSIBLE")
	_, err = reg.Resolve(context.Background(), "quest", scope.Step, je, model.NewStepExecution("s", je))
	assert.ErrorIs(t, err, exception.ErrParameterBinding)
}

func TestRegistry_JobScopedCachedUntilRelease(t *testing.T) {
	builds := 0
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name:         "previousSystemState",
		Kind:         scope.Job,
		Placeholders: []scope.Placeholder{scope.Param("previousState", scope.String).Optional("UNKNOWN")},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			builds++
			s := v.String("previousState")
			return &s, nil
		},
	})
	provider := scope.JobScoped[*string](reg, "previousSystemState")

	je := execution(t)
	a, err := provider(context.Background(), je, model.NewStepExecution("s1", je))
	require.NoError(t, err)
	b, err := provider(context.Background(), je, model.NewStepExecution("s2", je))
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "UNKNOWN", *a)

	other := execution(t)
	c, err := provider(context.Background(), other, nil)
	require.NoError(t, err)
	assert.NotSame(t, a, c, "each job execution gets its own instance")

	reg.Release(je.ID)
	d, err := provider(context.Background(), je, nil)
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, 3, builds)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := scope.NewRegistry(nil)
	build := func(ctx context.Context, v scope.Values) (any, error) { return nil, nil }

	require.NoError(t, reg.Register(scope.Definition{Name: "a", Build: build}))
	assert.Error(t, reg.Register(scope.Definition{Name: "a", Build: build}))
	assert.NoError(t, reg.Register(scope.Definition{Name: "a", Kind: scope.Job, Build: build}), "kinds are keyed separately")
	assert.Error(t, reg.Register(scope.Definition{
		Name:         "b",
		Kind:         scope.Job,
		Placeholders: []scope.Placeholder{scope.StepContextValue("x", scope.String)},
		Build:        build,
	}))
	assert.Error(t, reg.Register(scope.Definition{Name: "c"}))

	_, err := reg.Resolve(context.Background(), "unknown", scope.Step, execution(t), nil)
	assert.Error(t, err)
}

type infiltration struct {
	MissionName        string `batch:"missionName"`
	SecurityLevel      int    `batch:"securityLevel"`
	OperationCommander string `batch:"operationCommander"`
}

func TestValues_BindAndDecode(t *testing.T) {
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name: "pojo",
		Placeholders: []scope.Placeholder{
			scope.Param("missionName", scope.String),
			scope.Param("securityLevel", scope.Int),
			scope.Param("operationCommander", scope.String),
		},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			var p infiltration
			return p, v.Bind(&p)
		},
	})
	reg.MustRegister(scope.Definition{
		Name:         "json",
		Placeholders: []scope.Placeholder{scope.Param("mission", scope.Structured)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			var p infiltration
			return p, v.Decode("mission", &p)
		},
	})

	je := execution(t, "missionName=안산 데이터센터 침투", "securityLevel=3,long", "operationCommander=KILL-9")
	got, err := reg.Resolve(context.Background(), "pojo", scope.Step, je, nil)
	require.NoError(t, err)
	assert.Equal(t, infiltration{MissionName: "안산 데이터센터 침투", SecurityLevel: 3, OperationCommander: "KILL-9"}, got)

	je = execution(t, `mission={"missionName":"m","securityLevel":"2"},json`)
	got, err = reg.Resolve(context.Background(), "json", scope.Step, je, nil)
	require.NoError(t, err)
	assert.Equal(t, infiltration{MissionName: "m", SecurityLevel: 2}, got)
}

func TestValues_StepContextAndExpand(t *testing.T) {
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name:         "resumable",
		Placeholders: []scope.Placeholder{scope.StepContextValue("killed", scope.Int).Optional(0)},
		Build: func(ctx context.Context, v scope.Values) (any, error) {
			path, err := v.Expand(ctx, "#{jobParameters['outputDir']}/out")
			return []any{v.Int("killed"), path}, err
		},
	})

	je := execution(t, "outputDir=/tmp")
	se := model.NewStepExecution("s", je)
	se.ExecutionContext.Put("killed", float64(4))

	got, err := reg.Resolve(context.Background(), "resumable", scope.Step, je, se)
	require.NoError(t, err)
	assert.Equal(t, []any{4, "/tmp/out"}, got)
}

func TestProvider_TypeMismatch(t *testing.T) {
	reg := scope.NewRegistry(nil)
	reg.MustRegister(scope.Definition{
		Name:  "s",
		Build: func(ctx context.Context, v scope.Values) (any, error) { return "text", nil },
	})
	_, err := scope.StepScoped[int](reg, "s")(context.Background(), execution(t), nil)
	assert.ErrorContains(t, err, "not int")

	v, err := scope.Instance(42)(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
