package criteria

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Criteria is a filter expressed as predicates. Unlike a select criteria
// function it is a plain value, so two Criteria with equal predicates
// produce the same cache key.
type Criteria struct {
	Preds []Predicate
}

// CriteriaOf wraps preds.
func CriteriaOf(preds ...Predicate) Criteria {
	return Criteria{Preds: preds}
}

// Select adapts the predicates to go-repository-bun select criteria so
// repository reads share the filter semantics of rendered fragments.
func (c Criteria) Select() repository.SelectCriteria {
	preds := c.Preds
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, p := range preds {
			query, args := bunWhere(p)
			q = q.Where(query, args...)
		}
		return q
	}
}

// bunWhere renders p with bun's positional placeholders. Column expressions
// are built from validated identifiers only.
func bunWhere(p Predicate) (string, []any) {
	expr := p.Expr()
	switch p.Arity {
	case ArityNone:
		return expr + " " + p.Operator, nil
	case ArityList:
		return expr + " " + p.Operator + " (?)", []any{bun.In(p.Value)}
	case ArityRange:
		bounds, _ := p.Value.([]any)
		if len(bounds) != 2 {
			return "FALSE", nil
		}
		return expr + " " + p.Operator + " ? AND ?", bounds
	}
	return expr + " " + p.Operator + " ?", []any{p.Value}
}
