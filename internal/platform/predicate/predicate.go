// Package predicate composes SQL WHERE clauses from typed predicates.
// Columns are fixed identifiers chosen by code; values are always bound parameters.
package predicate

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// P is one condition with its bound arguments.
type P struct {
	clause string
	args   []any
}

func col(c string) string {
	if !identRe.MatchString(c) {
		panic(fmt.Sprintf("predicate: invalid column %q", c))
	}
	return c
}

func Eq(c string, v any) P  { return P{col(c) + " = ?", []any{v}} }
func Ne(c string, v any) P  { return P{col(c) + " <> ?", []any{v}} }
func Gte(c string, v any) P { return P{col(c) + " >= ?", []any{v}} }
func Lt(c string, v any) P  { return P{col(c) + " < ?", []any{v}} }
func Gt(c string, v any) P  { return P{col(c) + " > ?", []any{v}} }

func IsTrue(c string) P { return P{col(c) + " = TRUE", nil} }

// NotBlank matches non-null columns with at least one non-space character.
func NotBlank(c string) P {
	c = col(c)
	return P{"(" + c + " IS NOT NULL AND TRIM(" + c + ") <> '')", nil}
}

// Builder is an ordered AND-conjunction. The zero value matches everything.
type Builder struct {
	preds []P
}

func New(base ...P) *Builder {
	return &Builder{preds: append([]P(nil), base...)}
}

func (b *Builder) And(p P) *Builder {
	b.preds = append(b.preds, p)
	return b
}

// AndIf appends the predicate built by fn only when ok is true.
func (b *Builder) AndIf(ok bool, fn func() P) *Builder {
	if ok {
		b.preds = append(b.preds, fn())
	}
	return b
}

func (b *Builder) Len() int { return len(b.preds) }

// Where renders " WHERE a AND b" (empty when no predicates) with its arguments in order.
func (b *Builder) Where() (string, []any) {
	if len(b.preds) == 0 {
		return "", nil
	}
	var sb strings.Builder
	args := make([]any, 0, len(b.preds))
	sb.WriteString(" WHERE ")
	for i, p := range b.preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(p.clause)
		args = append(args, p.args...)
	}
	return sb.String(), args
}
