package notification

import (
	"context"

	"go.uber.org/fx"

	port "github.com/kangwooc/spring-batch/pkg/batch/core/application/port"
	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/core/job/runner"
)

// NewNotifier returns the AMQP notifier when infrastructure.notification.amqp.url
// is set and the log notifier otherwise.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config) Notifier {
	amqpCfg := cfg.Infrastructure.Notification.AMQP
	if amqpCfg.URL == "" {
		return NewLogNotifier()
	}
	n := NewAMQPNotifier(amqpCfg)
	lc.Append(fx.Hook{
		OnStart: n.Connect,
		OnStop:  func(ctx context.Context) error { return n.Close() },
	})
	return n
}

var Module = fx.Options(
	fx.Provide(NewNotifier),
	fx.Provide(fx.Annotate(
		NewListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+runner.JobListenerGroup+`"`),
	)),
)
