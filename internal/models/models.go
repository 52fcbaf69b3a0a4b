package models

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts the closed set of roles, ignoring surrounding blanks and case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrUnknownRole
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// User maps to the `users` table. Password holds a bcrypt hash, or plain text
// for rows written before hashing was introduced.
type User struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username string `gorm:"column:username;not null"`
	Password string `gorm:"column:password;not null"`
	Role     string `gorm:"column:role;not null"`
}

func (User) TableName() string {
	return "users"
}

type Calculation struct {
	ID          int64
	UserID      sql.NullInt64
	Calculation string
	Result      string
	Timestamp   time.Time
}

// RoleRecord is a row of the static `roles` lookup table.
type RoleRecord struct {
	ID   int64
	Name string
}

// StatEntry is one line of the cross-user statistics view.
type StatEntry struct {
	Username    string
	Calculation string
	Result      string
	Timestamp   time.Time
}
