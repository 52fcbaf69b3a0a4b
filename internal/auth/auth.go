package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"calculator-ledger/internal/apperr"
	"calculator-ledger/internal/models"
	"calculator-ledger/internal/storage"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, username, password string) error
}

type RoleStore interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Service registers and authenticates users. It keeps no notion of a current
// user; every call names the account it acts on.
type Service struct {
	users UserStore
	roles RoleStore
	cost  int
	log   logrus.FieldLogger
}

func NewService(users UserStore, roles RoleStore, cost int, log logrus.FieldLogger) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, roles: roles, cost: cost, log: log}
}

// Register creates an account. Uniqueness is left to the store's index, so a
// concurrent duplicate still comes back as AlreadyExists.
func (s *Service) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	role = strings.TrimSpace(role)
	if username == "" || password == "" || role == "" {
		return nil, apperr.Validation("please fill in username, password and role")
	}

	r, err := models.ParseRole(role)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("role must be %q or %q", models.RoleUser, models.RoleAdmin))
	}
	known, err := s.roles.Exists(ctx, r.String())
	if err != nil {
		return nil, fmt.Errorf("look up role: %w", err)
	}
	if !known {
		return nil, apperr.Validation(fmt.Sprintf("role %q is not configured", r))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username: username,
		Password: string(hash),
		Role:     r.String(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return nil, apperr.AlreadyExists("a user with this name already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"username": u.Username, "role": u.Role}).Info("user registered")
	return u, nil
}

// Login checks the credentials and returns the stored role.
func (s *Service) Login(ctx context.Context, username, password string) (models.Role, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", apperr.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if isHash(u.Password) {
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
			return "", apperr.ErrInvalidCredentials
		}
	} else {
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
			return "", apperr.ErrInvalidCredentials
		}
		s.upgrade(ctx, u.Username, password)
	}

	role, err := models.ParseRole(u.Role)
	if err != nil {
		s.log.WithFields(logrus.Fields{"username": u.Username, "role": u.Role}).Warn("unrecognised stored role, treating as user")
		role = models.RoleUser
	}
	s.log.WithFields(logrus.Fields{"username": u.Username, "role": role}).Info("user logged in")
	return role, nil
}

// ResetPassword overwrites the password of username without checking the old one.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.Validation("enter a username to reset the password")
	}

	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return apperr.NotFound("no user with this name")
		}
		return fmt.Errorf("find user: %w", err)
	}

	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return apperr.Validation("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, username, string(hash)); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return apperr.NotFound("no user with this name")
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.log.WithField("username", username).Info("password reset")
	return nil
}

// upgrade replaces a plain-text password left by older databases with its hash.
// Failure only costs another upgrade attempt on the next login.
func (s *Service) upgrade(ctx context.Context, username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err == nil {
		err = s.users.UpdatePassword(ctx, username, string(hash))
	}
	if err != nil {
		s.log.WithError(err).WithField("username", username).Warn("could not re-hash legacy password")
		return
	}
	s.log.WithField("username", username).Info("legacy password re-hashed")
}

func isHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}
