// Package incrementer provides JobParametersIncrementer implementations that make
// an otherwise identical launch start a new job instance.
package incrementer

import (
	"fmt"
	"time"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DefaultRunIDKey is the parameter RunIDIncrementer maintains by default.
const DefaultRunIDKey = "run.id"

// RunIDIncrementer sets a LONG parameter to 1, or to its previous value plus one.
type RunIDIncrementer struct {
	name string
}

func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{name: name}
}

func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	next := int64(1)
	if current, ok := params.GetLong(i.name); ok {
		next = current + 1
	}
	logger.Debugf("JobParametersIncrementer '%s': setting '%s' to %d.", i, i.name, next)
	return model.NewJobParametersBuilder(params).AddLong(i.name, next).ToJobParameters()
}

func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

// TimestampIncrementer sets a DATETIME parameter to the current time.
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = "run.timestamp"
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	return model.NewJobParametersBuilder(params).AddDateTime(i.name, i.now()).ToJobParameters()
}

func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var (
	_ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)
	_ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)
)
