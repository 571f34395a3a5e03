package store

import (
	"fmt"
	"strings"
)

// predicate is a WHERE clause fragment. Values are always bound as
// parameters, never interpolated.
type predicate interface {
	compile() (string, []any)
}

// equals matches column = value.
type equals struct {
	column string
	value  any
}

func (e equals) compile() (string, []any) {
	return e.column + " = ?", []any{e.value}
}

// atLeast matches column >= value.
type atLeast struct {
	column string
	value  any
}

func (a atLeast) compile() (string, []any) {
	return a.column + " >= ?", []any{a.value}
}

// and is a conjunction. An empty conjunction is vacuously true.
type and []predicate

func (a and) compile() (string, []any) {
	if len(a) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(a))
	var params []any
	for _, p := range a {
		sql, args := p.compile()
		parts = append(parts, sql)
		params = append(params, args...)
	}
	return strings.Join(parts, " AND "), params
}

// selectQuery assembles a SELECT with an optional filter and limit.
//
// orderBy is required and must end in a unique column so result order is
// deterministic.
type selectQuery struct {
	columns string
	from    string
	where   and
	orderBy string
	limit   int
}

func (q selectQuery) compile() (string, []any, error) {
	if q.orderBy == "" {
		return "", nil, fmt.Errorf("query on %s has no ORDER BY", q.from)
	}

	sql := "SELECT " + q.columns + " FROM " + q.from
	var params []any
	if len(q.where) > 0 {
		where, args := q.where.compile()
		sql += " WHERE " + where
		params = args
	}
	sql += " ORDER BY " + q.orderBy
	if q.limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.limit)
	}
	return sql, params, nil
}
