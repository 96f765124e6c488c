package verify

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// CompareFunc decides if an actual value satisfies the expected one.
type CompareFunc func(expected, actual string) bool

// Equal compares both values after trimming spaces.
func Equal(expected, actual string) bool {
	return strings.TrimSpace(expected) == strings.TrimSpace(actual)
}

// NotEmpty ignores the expected value and requires some actual value.
func NotEmpty(_, actual string) bool {
	return strings.TrimSpace(actual) != ""
}

// Matches requires the actual value to match re.
func Matches(re *regexp.Regexp) CompareFunc {
	return func(_, actual string) bool { return re.MatchString(actual) }
}

// Check is a single verification check.
type Check struct {
	Name          string
	Informational bool
	// Expected is the expected value, ExpectedFrom resolves it at run time instead
	// (e.g: a value read from another level).
	Expected     string
	ExpectedFrom func(ctx context.Context) (string, error)
	Actual       func(ctx context.Context) (string, error)
	// Compare defaults to Equal.
	Compare CompareFunc
}

func (c Check) run(ctx context.Context, level model.Level) model.CheckOutcome {
	out := model.CheckOutcome{
		Name:          c.Name,
		Level:         level,
		Expected:      c.Expected,
		Informational: c.Informational,
	}

	if c.ExpectedFrom != nil {
		exp, err := c.ExpectedFrom(ctx)
		if err != nil {
			out.Expected = errorValue(err)
			out.Actual = "not compared"
			return out
		}
		out.Expected = exp
	}

	if c.Actual == nil {
		out.Actual = "error: check has no actual value source"
		return out
	}
	actual, err := c.Actual(ctx)
	if err != nil {
		out.Actual = errorValue(err)
		return out
	}
	out.Actual = actual

	compare := c.Compare
	if compare == nil {
		compare = Equal
	}
	out.Passed = compare(out.Expected, out.Actual)

	return out
}

func errorValue(err error) string {
	return "error: " + err.Error()
}

// ValueFunc returns a value read from the system under test.
type ValueFunc func(ctx context.Context) (string, error)

// Memo returns a ValueFunc that reads only once, the first result (error included) is
// returned on every call.
func Memo(f ValueFunc) ValueFunc {
	var (
		mu   sync.Mutex
		done bool
		v    string
		err  error
	)
	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if !done {
			v, err = f(ctx)
			done = true
		}
		return v, err
	}
}
