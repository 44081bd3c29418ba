package catalogue

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is the comparison of a single predicate.
type Operator int

const (
	OpAll Operator = iota
	OpEqual
	OpNotEqual
	OpLess
	OpGreater
	OpLessOrEqual
	OpGreaterOrEqual
	OpLike
	OpBetween
)

var operatorSQL = map[Operator]string{
	OpEqual:          "=",
	OpNotEqual:       "<>",
	OpLess:           "<",
	OpGreater:        ">",
	OpLessOrEqual:    "<=",
	OpGreaterOrEqual: ">=",
	OpLike:           "LIKE",
	OpBetween:        "BETWEEN",
}

func (o Operator) String() string {
	if o == OpAll {
		return "*"
	}
	if s, ok := operatorSQL[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Predicate is one filter on the images table. Column is a raw column
// name; Args are bound parameters.
type Predicate struct {
	Op     Operator
	Column string
	Args   []any
}

func (p Predicate) key() string {
	if p.Op == OpAll {
		return "*"
	}
	var b strings.Builder
	b.WriteString(p.Column)
	b.WriteByte(' ')
	b.WriteString(p.Op.String())
	for _, a := range p.Args {
		fmt.Fprintf(&b, " %T:%v", a, a)
	}
	return b.String()
}

// compile renders the predicate as a query over the given column list.
func (p Predicate) compile(columns string) (string, []any) {
	query := "SELECT " + columns + " FROM images"
	switch p.Op {
	case OpAll:
		return query, nil
	case OpBetween:
		return query + " WHERE " + quoteIdent(p.Column) + " BETWEEN ? AND ?", p.Args
	default:
		return query + " WHERE " + quoteIdent(p.Column) + " " + operatorSQL[p.Op] + " ?", p.Args
	}
}

// Selection is a flat union of predicates. The zero value selects nothing.
type Selection struct {
	preds map[string]Predicate
}

func single(p Predicate) Selection {
	return Selection{preds: map[string]Predicate{p.key(): p}}
}

// None selects no rows.
func None() Selection { return Selection{} }

// All selects every row.
func All() Selection { return single(Predicate{Op: OpAll}) }

func Equal(column string, v any) Selection {
	return single(Predicate{Op: OpEqual, Column: column, Args: []any{v}})
}

func NotEqual(column string, v any) Selection {
	return single(Predicate{Op: OpNotEqual, Column: column, Args: []any{v}})
}

func Less(column string, v any) Selection {
	return single(Predicate{Op: OpLess, Column: column, Args: []any{v}})
}

func Greater(column string, v any) Selection {
	return single(Predicate{Op: OpGreater, Column: column, Args: []any{v}})
}

func LessOrEqual(column string, v any) Selection {
	return single(Predicate{Op: OpLessOrEqual, Column: column, Args: []any{v}})
}

func GreaterOrEqual(column string, v any) Selection {
	return single(Predicate{Op: OpGreaterOrEqual, Column: column, Args: []any{v}})
}

// Like matches column against a SQL LIKE pattern.
func Like(column string, pattern any) Selection {
	return single(Predicate{Op: OpLike, Column: column, Args: []any{pattern}})
}

// Between selects low <= column <= high.
func Between(column string, low, high any) Selection {
	return single(Predicate{Op: OpBetween, Column: column, Args: []any{low, high}})
}

// Join returns the union of s and other. Neither operand is modified.
func (s Selection) Join(other Selection) Selection {
	out := Selection{preds: make(map[string]Predicate, len(s.preds)+len(other.preds))}
	for k, p := range s.preds {
		out.preds[k] = p
	}
	for k, p := range other.preds {
		out.preds[k] = p
	}
	return out
}

// Predicates returns the predicates in a stable order.
func (s Selection) Predicates() []Predicate {
	keys := make([]string, 0, len(s.preds))
	for k := range s.preds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Predicate, len(keys))
	for i, k := range keys {
		out[i] = s.preds[k]
	}
	return out
}

// IsEmpty reports whether the selection can match no row.
func (s Selection) IsEmpty() bool { return len(s.preds) == 0 }

// IsAll reports whether the selection contains the all-rows predicate.
func (s Selection) IsAll() bool {
	_, ok := s.preds["*"]
	return ok
}

func (s Selection) String() string {
	if s.IsEmpty() {
		return "none"
	}
	preds := s.Predicates()
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.key()
	}
	return strings.Join(parts, " | ")
}
