package querybuilder

import (
	"regexp"
	"strings"
)

type Condition interface {
	appendSQL(buf *strings.Builder, args *[]any, argIndex *int)
}

type binaryCondition struct {
	column string
	op     string
	value  any
}

func Eq(column string, value any) Condition {
	return binaryCondition{column: column, op: "=", value: value}
}

func Gte(column string, value any) Condition {
	return binaryCondition{column: column, op: ">=", value: value}
}

func Lte(column string, value any) Condition {
	return binaryCondition{column: column, op: "<=", value: value}
}

func (c binaryCondition) appendSQL(buf *strings.Builder, args *[]any, argIndex *int) {
	buf.WriteString(c.column)
	buf.WriteString(" ")
	buf.WriteString(c.op)
	buf.WriteString(" ")
	buf.WriteString(nextPlaceholder(args, argIndex, c.value))
}

type setCondition struct {
	column string
	values []any
	negate bool
}

func In(column string, values []any) Condition {
	return setCondition{column: column, values: values}
}

// NotIn renders "column IS NULL OR column NOT IN (...)" so rows without a
// value are kept.
func NotIn(column string, values []any) Condition {
	return setCondition{column: column, values: values, negate: true}
}

func (c setCondition) appendSQL(buf *strings.Builder, args *[]any, argIndex *int) {
	if len(c.values) == 0 {
		if c.negate {
			buf.WriteString("1=1")
		} else {
			buf.WriteString("1=0")
		}
		return
	}

	if c.negate {
		buf.WriteString("(")
		buf.WriteString(c.column)
		buf.WriteString(" IS NULL OR ")
		buf.WriteString(c.column)
		buf.WriteString(" NOT IN (")
	} else {
		buf.WriteString(c.column)
		buf.WriteString(" IN (")
	}
	for i, v := range c.values {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(nextPlaceholder(args, argIndex, v))
	}
	buf.WriteString(")")
	if c.negate {
		buf.WriteString(")")
	}
}

type nullCondition struct {
	column string
	not    bool
}

func IsNull(column string) Condition {
	return nullCondition{column: column}
}

func IsNotNull(column string) Condition {
	return nullCondition{column: column, not: true}
}

func (c nullCondition) appendSQL(buf *strings.Builder, _ *[]any, _ *int) {
	buf.WriteString(c.column)
	if c.not {
		buf.WriteString(" IS NOT NULL")
		return
	}
	buf.WriteString(" IS NULL")
}

type exprCondition struct {
	expr string
	args []any
}

// Expr embeds raw SQL; each '?' is bound to the next arg.
func Expr(expr string, args ...any) Condition {
	return exprCondition{expr: expr, args: args}
}

func (c exprCondition) appendSQL(buf *strings.Builder, args *[]any, argIndex *int) {
	buf.WriteString(rewritePlaceholders(c.expr, c.args, args, argIndex))
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// ValidIdentifier reports whether name is safe to splice into SQL as a table
// or column name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
