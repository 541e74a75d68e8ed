// Package postgres registers the PostgreSQL dialector.
package postgres

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("postgres", Dialector)
}

func Dialector(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
	return postgres.Open(DSN(cfg)), nil
}

// DSN builds a keyword/value connection string.
func DSN(c dbconfig.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", c.User),
		fmt.Sprintf("password=%s", c.Password),
		fmt.Sprintf("dbname=%s", c.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if c.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", c.Schema))
	}
	return strings.Join(parts, " ")
}
