package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"calculator-ledger/internal/apperr"
	"calculator-ledger/internal/models"
	"calculator-ledger/internal/storage"
)

const DefaultStatisticsLimit = 10

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type CalculationStore interface {
	Create(ctx context.Context, userID int64, calculation, result string) (*models.Calculation, error)
	DeleteByUsername(ctx context.Context, username string) (int64, error)
	Recent(ctx context.Context, limit int) ([]models.StatEntry, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]models.Calculation, error)
}

// Service keeps the per-user record of successful calculations.
type Service struct {
	users        UserLookup
	calculations CalculationStore
	log          logrus.FieldLogger
}

func NewService(users UserLookup, calculations CalculationStore, log logrus.FieldLogger) *Service {
	return &Service{users: users, calculations: calculations, log: log}
}

// Record stores a calculation for username.
func (s *Service) Record(ctx context.Context, username, calculation, result string) (*models.Calculation, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("user %q not found", username))
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	c, err := s.calculations.Create(ctx, u.ID, calculation, result)
	if err != nil {
		return nil, fmt.Errorf("save calculation: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"username":       username,
		"calculation_id": c.ID,
	}).Debug("calculation recorded")
	return c, nil
}

// ClearHistory removes all calculations of username. Users without history,
// or unknown users, are not an error.
func (s *Service) ClearHistory(ctx context.Context, username string) error {
	n, err := s.calculations.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.log.WithFields(logrus.Fields{"username": username, "deleted": n}).Info("history cleared")
	return nil
}

// RecentStatistics returns the newest calculations across all users. Gating
// this to administrators is the caller's job.
func (s *Service) RecentStatistics(ctx context.Context, limit int) ([]models.StatEntry, error) {
	if limit <= 0 {
		limit = DefaultStatisticsLimit
	}
	entries, err := s.calculations.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent statistics: %w", err)
	}
	return entries, nil
}

// History returns the newest calculations of username.
func (s *Service) History(ctx context.Context, username string, limit int) ([]models.Calculation, error) {
	if limit <= 0 {
		limit = DefaultStatisticsLimit
	}
	list, err := s.calculations.ListByUsername(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return list, nil
}

const timeLayout = "2006-01-02 15:04:05"

// FormatStatistics renders entries the way the statistics view shows them.
func FormatStatistics(entries []models.StatEntry) string {
	var b strings.Builder
	b.WriteString("Recent calculations:\n")
	if len(entries) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "User: %s, Expression: %s, Result: %s, Time: %s\n",
			e.Username, e.Calculation, e.Result, e.Timestamp.Format(timeLayout))
	}
	return b.String()
}
