package gcs

import (
	"go.uber.org/fx"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
)

// Module contributes the GCS provider to the storage factory group.
var Module = fx.Provide(fx.Annotate(
	func() storage.Registration { return Registration },
	fx.ResultTags(`group:"`+storage.FactoryGroup+`"`),
))
