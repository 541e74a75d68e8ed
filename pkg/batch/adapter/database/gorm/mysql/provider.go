// Package mysql registers the MySQL dialector.
package mysql

import (
	"net"
	"net/url"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/config"
	gormadapter "github.com/kangwooc/spring-batch/pkg/batch/adapter/database/gorm"
)

const DefaultPort = 3306

func init() {
	gormadapter.RegisterDialector("mysql", Dialector)
}

func Dialector(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	return mysql.Open(dsn), nil
}

// DSN builds the driver DSN. Times are parsed in UTC and the charset defaults
// to utf8mb4; Params entries override both. Multi-statements are enabled for
// the schema migrations.
func DSN(cfg dbconfig.DatabaseConfig) (string, error) {
	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.MultiStatements = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.Params != "" {
		extra, err := url.ParseQuery(cfg.Params)
		if err != nil {
			return "", err
		}
		for k := range extra {
			c.Params[k] = extra.Get(k)
		}
	}
	return c.FormatDSN(), nil
}
