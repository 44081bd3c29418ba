package catalogue

import (
	"fmt"
	"strings"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// Base columns that can appear on the left of an expression.
const (
	ColumnID   = "id"
	ColumnPath = "path"
)

// Operators are matched in this order, so ">=" wins over ">" and "="
// and a "//" range wins over any single-character operator.
var expressionOperators = []struct {
	token string
	op    Operator
}{
	{">=", OpGreaterOrEqual},
	{"<=", OpLessOrEqual},
	{"<>", OpNotEqual},
	{"//", OpBetween},
	{"~", OpLike},
	{"=", OpEqual},
	{">", OpGreater},
	{"<", OpLess},
	{"*", OpAll},
}

// ParseExpression turns "lhs OP literal" into a selection. lhs is a tagger
// name or one of the id and path columns. Ranges are written
// "lhs//low..high" and "*" alone selects every image.
func ParseExpression(expr string, registry *analyzer.Registry) (Selection, error) {
	for _, candidate := range expressionOperators {
		idx := strings.Index(expr, candidate.token)
		if idx < 0 {
			continue
		}
		if candidate.op == OpAll {
			return All(), nil
		}
		lhs := strings.TrimSpace(expr[:idx])
		rhs := strings.TrimSpace(expr[idx+len(candidate.token):])
		return buildPredicate(candidate.op, lhs, rhs, registry)
	}
	return None(), apperrors.NewInvalidLiteral(fmt.Sprintf("expression %q has no operator", expr), nil)
}

// ParseExpressions joins every expression. No expressions selects all images.
func ParseExpressions(exprs []string, registry *analyzer.Registry) (Selection, error) {
	if len(exprs) == 0 {
		return All(), nil
	}
	sel := None()
	for _, expr := range exprs {
		s, err := ParseExpression(expr, registry)
		if err != nil {
			return None(), err
		}
		sel = sel.Join(s)
	}
	return sel, nil
}

type literalBinder func(text string) (any, error)

func buildPredicate(op Operator, lhs, rhs string, registry *analyzer.Registry) (Selection, error) {
	column, bind, err := resolveColumn(lhs, registry)
	if err != nil {
		return None(), err
	}

	if op == OpBetween {
		low, high, found := strings.Cut(rhs, "..")
		if !found {
			return None(), apperrors.NewInvalidLiteral(fmt.Sprintf("range %q must be written low..high", rhs), nil)
		}
		lowArg, err := bind(strings.TrimSpace(low))
		if err != nil {
			return None(), err
		}
		highArg, err := bind(strings.TrimSpace(high))
		if err != nil {
			return None(), err
		}
		return Between(column, lowArg, highArg), nil
	}

	arg, err := bind(rhs)
	if err != nil {
		return None(), err
	}
	return single(Predicate{Op: op, Column: column, Args: []any{arg}}), nil
}

func resolveColumn(lhs string, registry *analyzer.Registry) (string, literalBinder, error) {
	switch lhs {
	case ColumnID, ColumnPath:
		return lhs, func(text string) (any, error) { return text, nil }, nil
	}

	tagger, ok := registry.Get(lhs)
	if !ok {
		return "", nil, apperrors.NewInvalidLiteral(fmt.Sprintf("unknown tagger %q", lhs), analyzer.ErrUnknownTagger)
	}
	parser, ok := tagger.(analyzer.LiteralParser)
	if !ok {
		return "", nil, apperrors.NewInvalidLiteral(fmt.Sprintf("tagger %q does not accept literals", lhs), nil)
	}
	bind := func(text string) (any, error) {
		v, err := parser.ParseLiteral(text)
		if err != nil {
			return nil, err
		}
		arg, err := encodeValue(tagger.Kind(), v)
		if err != nil {
			return nil, apperrors.NewInvalidLiteral(fmt.Sprintf("literal %q for %s", text, lhs), err)
		}
		return arg, nil
	}
	return ColumnName(lhs), bind, nil
}
