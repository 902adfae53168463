package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	calendardomain "github.com/smallbiznis/receptionist/internal/calendar/domain"
	calldomain "github.com/smallbiznis/receptionist/internal/call/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embedded embed.FS

var errNoHandle = errors.New("migration: database handle is required")

// Models are the tables the service owns.
func Models() []any {
	return []any{
		&businessdomain.Business{},
		&calendardomain.Token{},
		&calldomain.Call{},
		&calldomain.Contact{},
	}
}

// Apply brings the schema up to date. Postgres runs the versioned SQL files;
// sqlite and mysql are created from the models.
func Apply(conn *gorm.DB, dialect string) error {
	if conn == nil {
		return errNoHandle
	}
	if !strings.EqualFold(dialect, "postgres") {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return Up(sqlDB)
}

// Up applies pending postgres migrations. It leaves db open.
func Up(db *sql.DB) error {
	if db == nil {
		return errNoHandle
	}

	files, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}

	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		return fmt.Errorf("apply migrations: %w", err)
	}
}
