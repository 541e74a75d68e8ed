package mysql_test

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm/mysql"
)

func TestDSN(t *testing.T) {
	dsn, err := mysql.DSN(dbconfig.DatabaseConfig{
		Type: "mysql", Host: "db", User: "batch", Password: "p@ss", Database: "metadata", Params: "timeout=5s",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "multiStatements=true")

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "metadata", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, parsed.MultiStatements)
	assert.Equal(t, "5s", parsed.Timeout.String())

	_, err = gormadapter.GetDialectorFactory("mysql")
	assert.NoError(t, err, "registered by init")
}
