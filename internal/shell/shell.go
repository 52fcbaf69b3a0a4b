package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"calculator-ledger/internal/apperr"
	"calculator-ledger/internal/calculator"
	"calculator-ledger/internal/ledger"
	"calculator-ledger/internal/models"
)

type Accounts interface {
	Register(ctx context.Context, username, password, role string) (*models.User, error)
	Login(ctx context.Context, username, password string) (models.Role, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type Ledger interface {
	ClearHistory(ctx context.Context, username string) error
	RecentStatistics(ctx context.Context, limit int) ([]models.StatEntry, error)
	History(ctx context.Context, username string, limit int) ([]models.Calculation, error)
}

type Calculator interface {
	Calculate(ctx context.Context, username, expression string) (string, error)
}

type Screen int

const (
	ScreenLogin Screen = iota
	ScreenRegister
	ScreenCalculator
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenRegister:
		return "register"
	case ScreenCalculator:
		return "calculator"
	}
	return "unknown"
}

type Options struct {
	StatisticsLimit int
	HistoryLimit    int
}

// Shell is a line-oriented front end: login, then register or calculator.
type Shell struct {
	accounts Accounts
	ledger   Ledger
	calc     Calculator
	out      io.Writer
	log      logrus.FieldLogger
	opts     Options

	screen  Screen
	session *Session
	pad     calculator.Pad
	lines   []string // calculations made in this session
}

func New(accounts Accounts, l Ledger, calc Calculator, out io.Writer, log logrus.FieldLogger, opts Options) *Shell {
	if opts.StatisticsLimit <= 0 {
		opts.StatisticsLimit = ledger.DefaultStatisticsLimit
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Shell{accounts: accounts, ledger: l, calc: calc, out: out, log: log, opts: opts}
}

func (s *Shell) Screen() Screen {
	return s.screen
}

// Session returns the logged-in identity, if any.
func (s *Shell) Session() (Session, bool) {
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Run reads commands from in until quit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	s.printHelp()
	for {
		s.prompt()
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := s.Handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// Handle executes one line of input and reports whether the user asked to quit.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if line == "quit" || line == "exit" {
		fmt.Fprintln(s.out, "Bye.")
		return true
	}
	if line == "help" {
		s.printHelp()
		return false
	}

	switch s.screen {
	case ScreenLogin:
		s.handleLogin(ctx, line)
	case ScreenRegister:
		s.handleRegister(ctx, line)
	case ScreenCalculator:
		s.handleCalculator(ctx, line)
	}
	return false
}

func (s *Shell) handleLogin(ctx context.Context, line string) {
	cmd, rest := cut(line)
	switch cmd {
	case "login":
		username, password := cut(rest)
		role, err := s.accounts.Login(ctx, username, password)
		if err != nil {
			s.fail("Login", err)
			return
		}
		s.session = &Session{Username: username, Role: role}
		s.screen = ScreenCalculator
		s.pad.Clear()
		s.lines = nil
		fmt.Fprintf(s.out, "Welcome, %s (%s).\n", username, role)
		s.printHelp()
	case "register":
		s.screen = ScreenRegister
		s.printHelp()
	case "reset":
		username, password := cut(rest)
		if err := s.accounts.ResetPassword(ctx, username, password); err != nil {
			s.fail("Password reset", err)
			return
		}
		fmt.Fprintln(s.out, "Password reset successfully.")
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type help.\n", cmd)
	}
}

func (s *Shell) handleRegister(ctx context.Context, line string) {
	if line == "back" {
		s.screen = ScreenLogin
		s.printHelp()
		return
	}
	username, rest := cut(line)
	password, role := rest, ""
	if i := strings.LastIndexAny(rest, " \t"); i >= 0 {
		password, role = strings.TrimSpace(rest[:i]), rest[i+1:]
	}
	if _, err := s.accounts.Register(ctx, username, password, role); err != nil {
		s.fail("Registration", err)
		return
	}
	fmt.Fprintln(s.out, "User registered successfully.")
	s.screen = ScreenLogin
	s.printHelp()
}

func (s *Shell) handleCalculator(ctx context.Context, line string) {
	sess := *s.session
	switch line {
	case "=":
		s.evaluate(ctx, sess)
	case "C", "c":
		s.pad.Clear()
		s.printDisplay()
	case "history":
		s.printHistory(ctx, sess)
	case "clear-history":
		if err := s.ledger.ClearHistory(ctx, sess.Username); err != nil {
			s.fail("Clear history", err)
			return
		}
		s.lines = nil
		fmt.Fprintln(s.out, "History cleared.")
	case "stats":
		s.printStatistics(ctx, sess)
	case "logout":
		s.log.WithField("username", sess.Username).Info("logged out")
		s.session = nil
		s.screen = ScreenLogin
		s.pad.Clear()
		s.lines = nil
		s.printHelp()
	default:
		if !s.pad.Press(strings.ReplaceAll(line, " ", "")) {
			fmt.Fprintf(s.out, "Unknown command or key %q. Type help.\n", line)
			return
		}
		s.printDisplay()
	}
}

func (s *Shell) evaluate(ctx context.Context, sess Session) {
	expression := s.pad.Text()
	result, err := s.calc.Calculate(ctx, sess.Username, expression)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeEvaluation {
			s.log.WithError(err).WithField("username", sess.Username).Error("calculation failed")
		}
		s.pad.Fail()
		s.printDisplay()
		return
	}
	s.pad.Resolve(result)
	s.lines = append(s.lines, fmt.Sprintf("%s = %s", expression, result))
	s.printDisplay()
}

func (s *Shell) printHistory(ctx context.Context, sess Session) {
	fmt.Fprintln(s.out, "History:")
	for _, l := range s.lines {
		fmt.Fprintln(s.out, l)
	}
	saved, err := s.ledger.History(ctx, sess.Username, s.opts.HistoryLimit)
	if err != nil {
		s.fail("History", err)
		return
	}
	fmt.Fprintf(s.out, "Saved (%d most recent):\n", len(saved))
	for _, c := range saved {
		fmt.Fprintf(s.out, "%s = %s\n", c.Calculation, c.Result)
	}
}

func (s *Shell) printStatistics(ctx context.Context, sess Session) {
	if !sess.CanViewStatistics() {
		fmt.Fprintln(s.out, "Statistics are available to administrators only.")
		return
	}
	entries, err := s.ledger.RecentStatistics(ctx, s.opts.StatisticsLimit)
	if err != nil {
		s.fail("Statistics", err)
		return
	}
	fmt.Fprint(s.out, ledger.FormatStatistics(entries))
}

func (s *Shell) fail(action string, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		s.log.WithError(err).Errorf("%s failed", strings.ToLower(action))
	}
	fmt.Fprintf(s.out, "Error: %s\n", apperr.Message(err))
}

func (s *Shell) prompt() {
	switch s.screen {
	case ScreenCalculator:
		fmt.Fprintf(s.out, "calc[%s]> ", s.session.Username)
	default:
		fmt.Fprintf(s.out, "%s> ", s.screen)
	}
}

func (s *Shell) printDisplay() {
	fmt.Fprintf(s.out, "[%s]\n", s.pad.Display())
}

func (s *Shell) printHelp() {
	switch s.screen {
	case ScreenLogin:
		fmt.Fprintln(s.out, "Commands: login <user> <password> | register | reset <user> <new password> | quit")
	case ScreenRegister:
		fmt.Fprintln(s.out, "Enter: <user> <password> <role: user|admin>, or back (the password may contain spaces)")
	case ScreenCalculator:
		cmds := "Keys: 0-9 + - * / | = | C | history | clear-history"
		if s.session != nil && s.session.CanViewStatistics() {
			cmds += " | stats"
		}
		fmt.Fprintln(s.out, cmds+" | logout | quit")
	}
}

// cut splits off the first word of s. The rest keeps its inner spaces, so
// a password may contain them.
func cut(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
