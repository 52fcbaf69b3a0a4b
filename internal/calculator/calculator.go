package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"

	"calculator-ledger/internal/apperr"
	"calculator-ledger/internal/models"
)

const allowed = "0123456789+-*/.() \t"

var (
	ErrEmptyExpression = errors.New("empty expression")
	ErrDivisionByZero  = errors.New("division by zero")
)

// Evaluator evaluates arithmetic over the four basic operators with the usual
// precedence and parentheses.
type Evaluator struct{}

func (Evaluator) Evaluate(expression string) (string, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return "", apperr.Evaluation("nothing to evaluate", ErrEmptyExpression)
	}
	for _, r := range expr {
		if !strings.ContainsRune(allowed, r) {
			return "", apperr.Evaluation("invalid expression", fmt.Errorf("unexpected character %q", r))
		}
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return "", apperr.Evaluation("invalid expression", err)
	}

	// govaluate reads a run of operator symbols such as "*-" as one token,
	// so every token is handed over space separated.
	compiled, err := govaluate.NewEvaluableExpression(strings.Join(tokens, " "))
	if err != nil {
		return "", apperr.Evaluation("invalid expression", err)
	}
	result, err := compiled.Evaluate(nil)
	if err != nil {
		return "", apperr.Evaluation("evaluation error", err)
	}

	f, ok := result.(float64)
	if !ok {
		return "", apperr.Evaluation("evaluation error", fmt.Errorf("non-numeric result %v", result))
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", apperr.Evaluation("division by zero", ErrDivisionByZero)
	}
	if f == 0 {
		f = 0 // drop negative zero
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenOperator
	tokenOpen
	tokenClose
)

// tokenize splits expr into numbers, operators and parentheses. Two operands
// with no operator between them, as in "(2)(3)" or "2(3)", are an error.
func tokenize(expr string) ([]string, error) {
	var tokens []string
	var prev tokenKind
	for i := 0; i < len(expr); {
		c := expr[i]
		var kind tokenKind
		var tok string
		switch {
		case c == ' ' || c == '\t':
			i++
			continue
		case isNumberByte(c):
			j := i
			for j < len(expr) && isNumberByte(expr[j]) {
				j++
			}
			kind, tok = tokenNumber, expr[i:j]
			i = j
		case c == '(':
			kind, tok = tokenOpen, "("
			i++
		case c == ')':
			kind, tok = tokenClose, ")"
			i++
		case strings.IndexByte("+-*/", c) >= 0:
			kind, tok = tokenOperator, string(c)
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
		if len(tokens) > 0 && (prev == tokenNumber || prev == tokenClose) && (kind == tokenNumber || kind == tokenOpen) {
			return nil, fmt.Errorf("missing operator before %q", tok)
		}
		tokens = append(tokens, tok)
		prev = kind
	}
	return tokens, nil
}

func isNumberByte(c byte) bool {
	return c >= '0' && c <= '9' || c == '.'
}

type Recorder interface {
	Record(ctx context.Context, username, calculation, result string) (*models.Calculation, error)
}

// Service evaluates an expression on behalf of a user and records it in the
// ledger. Failed evaluations are not recorded.
type Service struct {
	eval   Evaluator
	ledger Recorder
	log    logrus.FieldLogger
}

func NewService(ledger Recorder, log logrus.FieldLogger) *Service {
	return &Service{ledger: ledger, log: log}
}

func (s *Service) Calculate(ctx context.Context, username, expression string) (string, error) {
	result, err := s.eval.Evaluate(expression)
	if err != nil {
		s.log.WithError(err).WithField("username", username).Debug("evaluation failed")
		return "", err
	}
	if _, err := s.ledger.Record(ctx, username, expression, result); err != nil {
		return "", err
	}
	return result, nil
}
