// Package expression resolves #{...} placeholders in component properties against
// the running execution, e.g. "#{jobParameters['outputDir']}/death_note".
package expression

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
)

// Resolver replaces every #{...} in an expression string.
type Resolver interface {
	Resolve(ctx context.Context, expression string, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (string, error)
}

// DefaultResolver understands jobParameters['k'], jobExecutionContext['k'] and stepExecutionContext['k'].
// An unknown key is an error, not an empty string.
type DefaultResolver struct{}

func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

var (
	expressionPattern = regexp.MustCompile(`#\{(.+?)\}`)
	accessPattern     = regexp.MustCompile(`^(jobParameters|jobExecutionContext|stepExecutionContext)\['(.+?)'\]$`)
)

// HasExpression reports whether s contains a #{...} placeholder.
func HasExpression(s string) bool {
	return expressionPattern.MatchString(s)
}

func (r *DefaultResolver) Resolve(ctx context.Context, expression string, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (string, error) {
	var firstErr error
	resolved := expressionPattern.ReplaceAllStringFunc(expression, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-1])
		val, err := lookup(inner, jobExecution, stepExecution)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", fmt.Errorf("cannot resolve '%s': %w", expression, firstErr)
	}
	return resolved, nil
}

func lookup(expr string, je *model.JobExecution, se *model.StepExecution) (string, error) {
	m := accessPattern.FindStringSubmatch(expr)
	if len(m) != 3 {
		return "", fmt.Errorf("unsupported expression '%s'", expr)
	}
	source, key := m[1], m[2]
	switch source {
	case "jobParameters":
		if je != nil {
			if p, ok := je.Parameters.Get(key); ok {
				return p.Text(), nil
			}
		}
	case "jobExecutionContext":
		if je != nil {
			if v, ok := je.ExecutionContext.Get(key); ok {
				return fmt.Sprintf("%v", v), nil
			}
		}
	case "stepExecutionContext":
		if se != nil {
			if v, ok := se.ExecutionContext.Get(key); ok {
				return fmt.Sprintf("%v", v), nil
			}
		}
	}
	return "", fmt.Errorf("key '%s' not found in %s", key, source)
}
