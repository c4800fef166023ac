package criteria

import (
	"errors"
	"testing"

	"github.com/goliatone/go-criteria-cache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func menuFragment(t *testing.T, page Pageable) *Fragment {
	t.Helper()

	var request map[string]any
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("se_menus_request.json"), &request)

	preds := NewSynthesizer(nil, nil).Predicates(request, "")
	return NewFragment().From("se_menus").Where(preds...).Pageable(page)
}

func TestFragment_MenuSearch(t *testing.T) {
	q, err := menuFragment(t, PageOf(0, 10, Asc("sort"))).Build()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM se_menus WHERE tenant_code LIKE :tenantCode AND name LIKE :name ORDER BY sort ASC LIMIT 10 OFFSET 0",
		q.SQL())
	assert.Equal(t, map[string]any{"tenantCode": "0%", "name": "系统%"}, q.Params())

	testsupport.CompareWithGolden(t, testsupport.GoldenPath("se_menus_search.sql"), []byte(q.SQL()+"\n"+q.CountSQL()+"\n"))
	testsupport.CompareWithGoldenJSON(t, testsupport.GoldenPath("se_menus_search_params.json"), q.Params())
}

func TestFragment_Pagination(t *testing.T) {
	sql, err := NewFragment().From("t").Pageable(PageOf(2, 15, Desc("createdTime"))).QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t ORDER BY created_time DESC LIMIT 15 OFFSET 30", sql)
}

func TestFragment_UnpagedUsesDefaultSort(t *testing.T) {
	sql, err := NewFragment().From("t").Pageable(Unpaged()).QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t ORDER BY id ASC", sql)
}

func TestFragment_CountIgnoresPagination(t *testing.T) {
	paged := menuFragment(t, PageOf(3, 20, Desc("name")))
	unpaged := menuFragment(t, Unpaged())

	pagedCount, err := paged.CountSQL()
	require.NoError(t, err)
	unpagedCount, err := unpaged.CountSQL()
	require.NoError(t, err)

	assert.Equal(t, unpagedCount, pagedCount)
	assert.NotContains(t, pagedCount, "ORDER BY")
	assert.NotContains(t, pagedCount, "LIMIT")
	assert.Equal(t, paged.Params(), unpaged.Params())
}

func TestFragment_MissingSource(t *testing.T) {
	f := NewFragment().Where(Predicate{Column: "a", Operator: "=", Param: "a", Value: 1})

	_, err := f.QuerySQL()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyQuery))
	assert.Contains(t, err.Error(), "query is null")

	_, err = f.CountSQL()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "countSql is null")

	_, err = f.Build()
	var qErr *QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "QuerySQL", qErr.Op)

	_, err = NewFragment().From("  ").QuerySQL()
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFragment_Rendering(t *testing.T) {
	tests := []struct {
		name   string
		pred   Predicate
		where  string
		params map[string]any
	}{
		{
			name:   "list",
			pred:   Predicate{Column: "status", Operator: "IN", Param: "statusIn", Value: []any{"a"}, Arity: ArityList},
			where:  "status IN (:statusIn)",
			params: map[string]any{"statusIn": []any{"a"}},
		},
		{
			name:   "range",
			pred:   Predicate{Column: "sort", Operator: "BETWEEN", Param: "sortBetween", Value: []any{1, 9}, Arity: ArityRange},
			where:  "sort BETWEEN :sortBetween_from AND :sortBetween_to",
			params: map[string]any{"sortBetween_from": 1, "sortBetween_to": 9},
		},
		{
			name:   "null",
			pred:   Predicate{Column: "deleted_at", Operator: "IS NULL", Param: "ignored", Arity: ArityNone},
			where:  "deleted_at IS NULL",
			params: map[string]any{},
		},
		{
			name:   "cast",
			pred:   Predicate{Column: "attrs->>'w'", Operator: ">", Param: "w", Value: 3, Cast: "NUMERIC"},
			where:  "CAST(attrs->>'w' AS NUMERIC) > :w",
			params: map[string]any{"w": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFragment().From("t").Where(tt.pred)
			sql, err := f.QuerySQL()
			require.NoError(t, err)
			assert.Equal(t, "SELECT * FROM t WHERE "+tt.where, sql)
			assert.Equal(t, tt.params, f.Params())
		})
	}
}

func TestFragment_ParamNamesAreUnique(t *testing.T) {
	f := NewFragment().From("t").Where(
		Predicate{Column: "name", Operator: "LIKE", Param: "name", Value: "a%"},
		Predicate{Column: "alias", Operator: "LIKE", Param: "name", Value: "b%"},
		Predicate{Column: "x", Operator: "BETWEEN", Param: "name", Value: []any{1, 2}, Arity: ArityRange},
	)

	sql, err := f.QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE name LIKE :name AND alias LIKE :name_2 AND x BETWEEN :name_from AND :name_to", sql)
	assert.Len(t, f.Params(), 4)

	preds := f.Predicates()
	require.Len(t, preds, 3)
	assert.Equal(t, "name_2", preds[1].Param)
}

func TestFragment_CaseFold(t *testing.T) {
	f := NewFragment().From("t").CaseFold(true).Where(
		Predicate{Column: "name", Operator: "LIKE", Param: "name", Value: "A%", IgnoreCase: true},
		Predicate{Column: "tenant_code", Operator: "LIKE", Param: "tenantCode", Value: "0%"},
	)

	sql, err := f.QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE LOWER(name) LIKE LOWER(:name) AND tenant_code LIKE :tenantCode", sql)
}

func TestFragment_ProjectionAndGrouping(t *testing.T) {
	f := NewFragment().
		Columns("tenant_code", "COUNT(*) AS n").
		From("se_menus").
		GroupBy("tenant_code").
		OrderBy(OrderTerm{Column: "tenant_code", Ascending: true}).
		Limit(5)

	sql, err := f.QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT tenant_code, COUNT(*) AS n FROM se_menus GROUP BY tenant_code ORDER BY tenant_code ASC LIMIT 5 OFFSET 0", sql)

	count, err := f.CountSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT 1 FROM se_menus GROUP BY tenant_code) t", count)
}

func TestFragment_SeveralSources(t *testing.T) {
	sql, err := NewFragment().From("a", "b").Pageable(PageOf(0, 1, Order{Property: "name", IgnoreCase: true})).QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM a, b ORDER BY LOWER(name) ASC LIMIT 1 OFFSET 0", sql)
}

func TestFragment_PageableWithPrefix(t *testing.T) {
	sql, err := NewFragment().From("se_menus m").PageableWithPrefix(PageOf(1, 10, Asc("sort")), "m").QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM se_menus m ORDER BY m.sort ASC LIMIT 10 OFFSET 10", sql)
}

func TestQuery_ParamsAreCopied(t *testing.T) {
	q, err := menuFragment(t, Unpaged()).Build()
	require.NoError(t, err)

	params := q.Params()
	params["tenantCode"] = "tampered"
	assert.Equal(t, "0%", q.Params()["tenantCode"])
}
