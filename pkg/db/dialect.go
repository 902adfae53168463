package db

import (
	"fmt"
	"net/url"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "receptionist.db"

// Dialect picks the gorm driver for cfg.Type. sqlite uses Name as the file
// path so a local run needs no server.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.Open(cfg.postgresDSN()), nil
	case "mysql":
		return mysql.Open(cfg.mysqlDSN()), nil
	case "sqlite":
		name := cfg.Name
		if name == "" || name == "postgres" {
			name = defaultSQLiteFile
		}
		return sqlite.Open(name), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
}

func (cfg Config) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/" + cfg.Name,
	}
	q := url.Values{"TimeZone": {"UTC"}}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (cfg Config) mysqlDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}
