package runs

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidRange marks input runs whose Start is greater than their End.
var ErrInvalidRange = errors.New("invalid run range")

// InvalidRun records an offending run together with its position in the input.
type InvalidRun struct {
	Index int
	Run   Run
}

// ValidationError lists every run that failed the Start <= End precondition.
type ValidationError struct {
	Invalid []InvalidRun
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Invalid))
	for _, inv := range e.Invalid {
		parts = append(parts, fmt.Sprintf("#%d [%d,%d)", inv.Index, inv.Run.Start, inv.Run.End))
	}
	return fmt.Sprintf("%v: start > end for %d run(s): %s",
		ErrInvalidRange, len(e.Invalid), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRange }

func validate(in []Run) error {
	var invalid []InvalidRun
	for i, r := range in {
		if !r.Valid() {
			invalid = append(invalid, InvalidRun{Index: i, Run: r})
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &ValidationError{Invalid: invalid}
}
