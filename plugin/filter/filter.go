// Package filter evaluates CEL expressions against items.
//
// An expression sees these variables:
//
//	id            int
//	kind          string   "question", "challenge" or "mcq"
//	summary       string
//	tags          list(string)
//	language      string   empty unless kind == "challenge"
//	mcq_type      string   empty unless kind == "mcq"
//	interval      int
//	ease_factor   double
//	repetitions   int
//	due_date      string   YYYY-MM-DD
//	is_new        bool
//	due           bool     due on the evaluation date
//	days_overdue  int
//
// For example: `kind == "mcq" && "go" in tags && ease_factor < 2.0`.
package filter

import (
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

var itemEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("language", cel.StringType),
		cel.Variable("mcq_type", cel.StringType),
		cel.Variable("interval", cel.IntType),
		cel.Variable("ease_factor", cel.DoubleType),
		cel.Variable("repetitions", cel.IntType),
		cel.Variable("due_date", cel.StringType),
		cel.Variable("is_new", cel.BoolType),
		cel.Variable("due", cel.BoolType),
		cel.Variable("days_overdue", cel.IntType),
	)
})

// Filter is a compiled item filter.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr. The expression must be boolean.
func Compile(expr string) (*Filter, error) {
	env, err := itemEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter environment")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, rerrors.Wrap(issues.Err(), rerrors.ErrCodeInvalidArgument, "invalid filter")
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, rerrors.InvalidArgument("filter must be a boolean expression, got %s", ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match reports whether item satisfies the filter on the given date.
func (f *Filter) Match(item *store.Item, asOf time.Time) (bool, error) {
	out, _, err := f.program.Eval(activation(item, asOf))
	if err != nil {
		return false, rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "filter "+item.Name())
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, rerrors.InvalidArgument("filter returned %v, not a boolean", out.Value())
	}
	return matched, nil
}

// Apply keeps the items satisfying the filter, preserving order.
func (f *Filter) Apply(items []*store.Item, asOf time.Time) ([]*store.Item, error) {
	matched := make([]*store.Item, 0, len(items))
	for _, item := range items {
		ok, err := f.Match(item, asOf)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func activation(item *store.Item, asOf time.Time) map[string]any {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":           int64(item.ID),
		"kind":         string(item.Kind()),
		"summary":      item.Content.Summary(),
		"tags":         tags,
		"language":     string(item.Language()),
		"mcq_type":     string(item.MCQType()),
		"interval":     int64(item.Interval),
		"ease_factor":  item.EaseFactor,
		"repetitions":  int64(item.Repetitions),
		"due_date":     sm2.FormatDate(item.DueDate),
		"is_new":       item.IsNew(),
		"due":          sm2.IsDue(item.State, asOf),
		"days_overdue": int64(sm2.DaysOverdue(item.State, asOf)),
	}
}
