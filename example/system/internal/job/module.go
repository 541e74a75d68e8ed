// Package job defines the system jobs and the scoped components they resolve per execution.
package job

import (
	"go.uber.org/fx"

	usecase "github.com/kangwooc/spring-batch/pkg/batch/core/application/usecase"
	"github.com/kangwooc/spring-batch/pkg/batch/core/support/scope"
)

// asJob contributes a constructor returning a port.Job to the launcher's job group.
func asJob(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"`+usecase.JobGroup+`"`))
}

// Module contributes every job that runs on any repository, with its scoped components.
var Module = fx.Options(
	fx.Provide(
		scope.AsDefinition(NewSystemFailureItemReaderDefinition),
		scope.AsDefinition(NewFixedSizeSystemFailureItemReaderDefinition),
		scope.AsDefinition(NewDateTimeEditorSystemFailureItemReaderDefinition),
		scope.AsDefinition(NewMultiSystemFailureItemReaderDefinition),
		scope.AsDefinition(NewMultiResourceItemWriterDefinition),
		scope.AsDefinition(NewSystemFailureParquetWriterDefinition),
		scope.AsDefinition(NewTerminatorTaskletDefinition),
		scope.AsDefinition(NewEnumTerminatorTaskletDefinition),
		scope.AsDefinition(NewPojoTerminatorTaskletDefinition),
		scope.AsDefinition(NewPojoJsonTerminatorTaskletDefinition),
		scope.AsDefinition(NewSystemDestructionTaskletDefinition),
		scope.AsDefinition(NewInfiltrationTaskletDefinition),
	),
	fx.Provide(
		asJob(NewSystemFailureJob),
		asJob(NewMultiSystemFailureJob),
		asJob(NewSystemFailureArchiveJob),
		asJob(NewDeathNoteMultiWriteJob),
		asJob(NewZombieProcessCleanupJob),
		asJob(NewSystemTerminationSimulationJob),
		asJob(NewProcessTerminatorJob),
		asJob(NewEnumTerminatorJob),
		asJob(NewPojoTerminatorJob),
		asJob(NewPojoJsonTerminatorJob),
		asJob(NewSystemDestructionJob),
	),
)

// SQLModule contributes the jobs that need the *gorm.DB of the SQL repository.
var SQLModule = fx.Provide(
	asJob(NewMetadataMigrationJob),
	asJob(NewSystemFailureLoadJob),
)
