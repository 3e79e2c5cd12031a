package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var ErrEmptyDSN = errors.New("DATABASE_URL is empty")

func configurePool(sqlDB *sql.DB, dialect string) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	if dialect == DialectSQLite {
		// one writer, and an in-memory database only lives on its own connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

// Dialect picks the driver from the DSN: postgres URLs or key=value strings,
// otherwise sqlite ("sqlite:<path>", "file:...", ":memory:"). Sqlite targets
// get foreign key enforcement switched on.
func Dialect(dsn string) (string, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return DialectPostgres, dsn
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, withForeignKeys(strings.TrimPrefix(dsn, "sqlite:"))
	default:
		return DialectSQLite, withForeignKeys(dsn)
	}
}

const foreignKeysPragma = "_pragma=foreign_keys(1)"

func withForeignKeys(target string) string {
	if strings.Contains(target, "foreign_keys") {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + foreignKeysPragma
	}
	return target + "?" + foreignKeysPragma
}

type Options struct {
	Quiet bool
}

func Open(ctx context.Context, dsn string, opts ...Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	dialect, target := Dialect(dsn)
	var dialector gorm.Dialector
	if dialect == DialectPostgres {
		dialector = postgres.Open(target)
	} else {
		dialector = sqlite.Open(target)
	}

	gcfg := &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if o.Quiet {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, dialect)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return db, nil
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// MissingTables returns the entity tables not present in the schema.
func MissingTables(ctx context.Context, db *gorm.DB) []string {
	m := db.WithContext(ctx).Migrator()
	var missing []string
	for _, model := range models.All() {
		if !m.HasTable(model) {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(model); err == nil {
				missing = append(missing, stmt.Schema.Table)
			}
		}
	}
	return missing
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
