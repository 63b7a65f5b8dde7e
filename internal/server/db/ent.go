// Package db opens the ent.Client against the configured SQL dialect.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Shaswata28/studymate/internal/ent"
	"github.com/Shaswata28/studymate/internal/ent/migrate"
)

// Config selects the SQL backend for Material/ChatTurn persistence.
type Config struct {
	Dialect string `conf:"dialect" yaml:"dialect" json:"dialect"`
	DSN     string `conf:"dsn" yaml:"dsn" json:"dsn"`
	Debug   bool   `conf:"debug" yaml:"debug" json:"debug"`
}

// NewEntClient opens a client for cfg.Dialect and migrates the schema.
func NewEntClient(cfg Config) *ent.Client {
	var opts []ent.Option
	if cfg.Debug {
		opts = append(opts, ent.Debug())
	}

	var (
		sqlDB     *sql.DB
		dbDialect string
		err       error
	)

	switch cfg.Dialect {
	case "postgres", "pgx", "postgresql":
		sqlDB, err = sql.Open("pgx", cfg.DSN)
		dbDialect = dialect.Postgres
	case "sqlite", "sqlite3":
		sqlDB, err = sql.Open("sqlite", cfg.DSN)
		dbDialect = dialect.SQLite
	case "mysql":
		sqlDB, err = sql.Open("mysql", cfg.DSN)
		dbDialect = dialect.MySQL
	default:
		panic(fmt.Errorf("invalid dialect: %s", cfg.Dialect))
	}

	if err != nil {
		panic(err)
	}

	drv := entsql.OpenDB(dbDialect, sqlDB)
	opts = append(opts, ent.Driver(drv))
	client := ent.NewClient(opts...)

	err = client.Schema.Create(
		context.Background(),
		migrate.WithGlobalUniqueID(false),
		migrate.WithForeignKeys(dbDialect != dialect.SQLite),
	)
	if err != nil {
		panic(err)
	}

	return client
}
