package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm/postgres"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"host=pg port=5432 user=u password=p dbname=batch sslmode=disable search_path=meta",
		postgres.DSN(dbconfig.DatabaseConfig{Host: "pg", User: "u", Password: "p", Database: "batch", Schema: "meta"}))
}
