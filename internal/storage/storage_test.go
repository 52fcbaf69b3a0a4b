package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"calculator-ledger/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := Open("file:"+name+"?mode=memory&cache=shared", logging.Discard())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLite_CreatesSchemaAndSeedsRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculator.db")

	db, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	for _, table := range []string{"users", "calculations", "roles"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		if err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// a second start must not duplicate the seeded roles
	db, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to reopen db: %v", err)
	}
	defer db.Close()

	roles, err := NewRoleRepository(db).List(context.Background())
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 || roles[0].Name != "admin" || roles[1].Name != "user" {
		t.Fatalf("unexpected roles after reopen: %+v", roles)
	}
}

type column struct {
	name    string
	typ     string
	notNull bool
	dflt    string
	pk      bool
}

func tableColumns(t *testing.T, db *sql.DB, table string) []column {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			cid     int
			c       column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.name, &c.typ, &notNull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info %s: %v", table, err)
		}
		c.notNull, c.dflt, c.pk = notNull == 1, dflt.String, pk == 1
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	return cols
}

func TestNewSQLite_SchemaColumns(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "calculator.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	want := map[string][]column{
		"users": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "username", typ: "TEXT", notNull: true},
			{name: "password", typ: "TEXT", notNull: true},
			{name: "role", typ: "TEXT", notNull: true},
		},
		"calculations": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "user_id", typ: "INTEGER"},
			{name: "calculation", typ: "TEXT"},
			{name: "result", typ: "TEXT"},
			{name: "timestamp", typ: "DATETIME", dflt: "CURRENT_TIMESTAMP"},
		},
		"roles": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "role_name", typ: "TEXT", notNull: true},
		},
	}
	for table, cols := range want {
		got := tableColumns(t, db, table)
		if len(got) != len(cols) {
			t.Fatalf("%s: expected %d columns, got %+v", table, len(cols), got)
		}
		for i := range cols {
			if got[i] != cols[i] {
				t.Fatalf("%s column %d: expected %+v, got %+v", table, i, cols[i], got[i])
			}
		}
	}
}

func TestNewSQLite_UnwritableLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "calculator.db")
	if _, err := NewSQLite(path); err == nil {
		t.Fatal("expected error for a database in a missing directory")
	}
}

func TestMigrate_ExecutesSchemaThenSeeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS calculations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS roles`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_calculations_user_id`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO roles`).WithArgs("admin", "admin").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO roles`).WithArgs("user", "user").WillReturnResult(sqlmock.NewResult(2, 1))

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRoleRepository_Exists(t *testing.T) {
	s := openTestStore(t)
	repo := NewRoleRepository(s.DB)
	ctx := context.Background()

	for name, want := range map[string]bool{"admin": true, "user": true, "guest": false} {
		got, err := repo.Exists(ctx, name)
		if err != nil {
			t.Fatalf("exists %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("exists %s: expected %v, got %v", name, want, got)
		}
	}
}
