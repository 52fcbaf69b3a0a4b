package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func insertUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	res, err := s.DB.Exec("INSERT INTO users (username, password, role) VALUES (?, ?, ?)", username, "hash", "user")
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get user id: %v", err)
	}
	return id
}

func TestCalculationRepository_CreateAndRecent(t *testing.T) {
	s := openTestStore(t)
	repo := NewCalculationRepository(s.DB)
	ctx := context.Background()

	alice := insertUser(t, s, "alice")
	bob := insertUser(t, s, "bob")

	c, err := repo.Create(ctx, alice, "2+2", "4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || !c.UserID.Valid || c.UserID.Int64 != alice {
		t.Fatalf("unexpected calculation: %+v", c)
	}
	if c.Timestamp.IsZero() {
		t.Fatal("expected timestamp from column default")
	}
	if _, err := repo.Create(ctx, bob, "3*3", "9"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, alice, "10/4", "2.5"); err != nil {
		t.Fatalf("create: %v", err)
	}

	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Username != "alice" || recent[0].Calculation != "10/4" || recent[0].Result != "2.5" {
		t.Fatalf("unexpected newest entry: %+v", recent[0])
	}
	if recent[1].Username != "bob" || recent[1].Calculation != "3*3" {
		t.Fatalf("unexpected second entry: %+v", recent[1])
	}

	mine, err := repo.ListByUsername(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list by username: %v", err)
	}
	if len(mine) != 2 || mine[0].Calculation != "10/4" || mine[1].Calculation != "2+2" {
		t.Fatalf("unexpected alice history: %+v", mine)
	}
}

func TestCalculationRepository_DeleteByUsername(t *testing.T) {
	s := openTestStore(t)
	repo := NewCalculationRepository(s.DB)
	ctx := context.Background()

	alice := insertUser(t, s, "alice")
	bob := insertUser(t, s, "bob")
	for _, id := range []int64{alice, alice, bob} {
		if _, err := repo.Create(ctx, id, "1+1", "2"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := repo.DeleteByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}

	n, err = repo.DeleteByUsername(ctx, "ghost")
	if err != nil || n != 0 {
		t.Fatalf("expected no-op for unknown user, got n=%d err=%v", n, err)
	}

	var count int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM calculations WHERE user_id = ?", bob).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected bob's row to survive, got %d", count)
	}
}

func TestCalculationRepository_RecentQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"username", "calculation", "result", "timestamp"}).
		AddRow("alice", "2+2", "4", ts).
		AddRow("bob", nil, nil, ts)
	mock.ExpectQuery(`FROM calculations JOIN users ON users\.id = calculations\.user_id ORDER BY calculations\.timestamp DESC, calculations\.id DESC LIMIT \?`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := NewCalculationRepository(db).Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Result != "4" || !got[0].Timestamp.Equal(ts) {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[1].Calculation != "" || got[1].Result != "" {
		t.Fatalf("expected NULL columns to read as empty: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCalculationRepository_DeleteUsesUsernameSubquery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM calculations WHERE user_id = \(SELECT id FROM users WHERE username = \?\)`).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewCalculationRepository(db).DeleteByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
