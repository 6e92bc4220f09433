package weighted

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var (
	// ErrInvalidInput reports malformed reserves, weights, deposits or configuration.
	ErrInvalidInput = errors.New("weighted: invalid input")
	// ErrVanishingDerivative reports a step divisor below the configured floor.
	ErrVanishingDerivative = errors.New("weighted: derivative vanished")
	// ErrDomainViolation reports an iterate that could not be kept inside the domain.
	ErrDomainViolation = errors.New("weighted: iterate outside domain")
	// ErrMaxIterations reports that the iteration ceiling was reached.
	ErrMaxIterations = errors.New("weighted: maximum iterations exceeded")
	// ErrAborted reports that the per-iteration hook stopped the solve.
	ErrAborted = errors.New("weighted: solve aborted")
	// ErrArithmetic reports a trapped decimal condition (overflow, division by zero).
	ErrArithmetic = errors.New("weighted: arithmetic condition")
)

// SolveError describes a failed solve. Err is one of the package sentinels;
// Iterate and Residual are expressed in the Δ domain and may be nil when the
// failure happened before they could be computed.
type SolveError struct {
	Err       error
	Iteration int
	Iterate   *apd.Decimal
	Residual  *apd.Decimal

	cause error
}

func (e *SolveError) Error() string {
	var b strings.Builder
	if e.cause != nil {
		b.WriteString(e.cause.Error())
	} else {
		b.WriteString(e.Err.Error())
	}
	b.WriteString(" (iteration ")
	b.WriteString(strconv.Itoa(e.Iteration))
	if e.Iterate != nil {
		b.WriteString(", delta ")
		b.WriteString(e.Iterate.Text('e'))
	}
	if e.Residual != nil {
		b.WriteString(", residual ")
		b.WriteString(e.Residual.Text('e'))
	}
	b.WriteString(")")
	return b.String()
}

func (e *SolveError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.Err
}

// sentinel maps an internal error onto the package sentinel it wraps.
func sentinel(err error) error {
	for _, s := range []error{ErrInvalidInput, ErrVanishingDerivative, ErrDomainViolation, ErrAborted, ErrMaxIterations} {
		if errors.Is(err, s) {
			return s
		}
	}
	return ErrArithmetic
}
