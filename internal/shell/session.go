package shell

import "calculator-ledger/internal/models"

// Session is the identity established by a successful login. The shell owns
// it; services are always told the username explicitly.
type Session struct {
	Username string
	Role     models.Role
}

func (s Session) CanViewStatistics() bool {
	return s.Role.IsAdmin()
}
