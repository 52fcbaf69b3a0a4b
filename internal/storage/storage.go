package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store bundles the sqlite handle with a gorm session sharing the same pool.
type Store struct {
	DB   *sql.DB
	Gorm *gorm.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		calculation TEXT,
		result TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id))`,
	`CREATE TABLE IF NOT EXISTS roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role_name TEXT NOT NULL)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
	`CREATE INDEX IF NOT EXISTS idx_calculations_user_id ON calculations(user_id)`,
}

var seedRoles = []string{"admin", "user"}

const seedRoleStmt = `INSERT INTO roles (role_name) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM roles WHERE role_name = ?)`

// NewSQLite opens the database file and brings the schema up to date.
func NewSQLite(filepath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(filepath))
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection keeps in-memory
	// databases alive between statements.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open is NewSQLite plus a gorm handle over the same connection pool.
func Open(filepath string, log logrus.FieldLogger) (*Store, error) {
	db, err := NewSQLite(filepath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath, err)
	}
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: db}), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("gorm on %s: %w", filepath, err)
	}
	return &Store{DB: db, Gorm: gdb}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate creates the tables and indexes if absent and seeds the roles table.
// It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, role := range seedRoles {
		if _, err := db.ExecContext(ctx, seedRoleStmt, role, role); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}
	return nil
}

func dsn(filepath string) string {
	sep := "?"
	if strings.Contains(filepath, "?") {
		sep = "&"
	}
	return filepath + sep + "_foreign_keys=1&_busy_timeout=5000"
}
