package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/kangwooc/spring-batch/pkg/batch/core/domain/repository"
	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

// Module provides InMemoryJobRepository as repository.JobRepository together
// with a ResourcelessTransactionManager, since there is no database to transact against.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryJobRepository,
			fx.As(new(repository.JobRepository)),
		),
		fx.Annotate(
			tx.NewResourcelessTransactionManager,
			fx.As(new(tx.TransactionManager)),
		),
	),
)
