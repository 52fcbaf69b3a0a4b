package storage

import (
	"context"
	"database/sql"
	"time"

	"calculator-ledger/internal/models"
)

type CalculationRepository struct {
	db *sql.DB
}

func NewCalculationRepository(db *sql.DB) *CalculationRepository {
	return &CalculationRepository{db: db}
}

// Create inserts a calculation for userID; the timestamp is assigned by the
// column default and read back.
func (r *CalculationRepository) Create(ctx context.Context, userID int64, calculation, result string) (*models.Calculation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO calculations (user_id, calculation, result) VALUES (?, ?, ?)`,
		userID, calculation, result,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	c := &models.Calculation{
		ID:          id,
		UserID:      sql.NullInt64{Int64: userID, Valid: true},
		Calculation: calculation,
		Result:      result,
	}
	err = r.db.QueryRowContext(ctx, `SELECT timestamp FROM calculations WHERE id = ?`, id).Scan(&c.Timestamp)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteByUsername removes every calculation of username and reports how many
// rows went away. Unknown users delete nothing.
func (r *CalculationRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calculations WHERE user_id = (SELECT id FROM users WHERE username = ?)`,
		username,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Recent returns the newest calculations across all users joined with their
// usernames.
func (r *CalculationRepository) Recent(ctx context.Context, limit int) ([]models.StatEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT users.username, calculations.calculation, calculations.result, calculations.timestamp
		FROM calculations
		JOIN users ON users.id = calculations.user_id
		ORDER BY calculations.timestamp DESC, calculations.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatEntry
	for rows.Next() {
		var (
			e              models.StatEntry
			calc, computed sql.NullString
		)
		if err := rows.Scan(&e.Username, &calc, &computed, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Calculation, e.Result = calc.String, computed.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUsername returns the newest calculations of a single user.
func (r *CalculationRepository) ListByUsername(ctx context.Context, username string, limit int) ([]models.Calculation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT calculations.id, calculations.user_id, calculations.calculation, calculations.result, calculations.timestamp
		FROM calculations
		JOIN users ON users.id = calculations.user_id
		WHERE users.username = ?
		ORDER BY calculations.timestamp DESC, calculations.id DESC
		LIMIT ?`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Calculation
	for rows.Next() {
		var (
			c              models.Calculation
			calc, computed sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &calc, &computed, &c.Timestamp); err != nil {
			return nil, err
		}
		c.Calculation, c.Result = calc.String, computed.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
