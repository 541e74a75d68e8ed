package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the ConnectionResolver and closes its connections on shutdown.
// Provider packages (local, gcs, ftp) contribute their Registrations separately.
var Module = fx.Options(
	fx.Provide(NewConnectionResolver),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return r.CloseAll() },
		})
	}),
)
