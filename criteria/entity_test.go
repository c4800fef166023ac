package criteria

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-criteria-cache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type seMenu struct {
	bun.BaseModel `bun:"table:se_menus"`

	ID         int64  `bun:"id,pk"`
	TenantCode string `bun:"tenant_code"`
	Name       string `bun:"name"`
	Sort       int    `bun:"sort"`
}

type untabled struct {
	ID int64 `bun:"id,pk"`
}

const seMenusSchema = `CREATE TABLE se_menus (id INTEGER PRIMARY KEY, tenant_code TEXT, name TEXT, sort INTEGER)`

func seedMenus(t *testing.T) *bun.DB {
	t.Helper()
	return testsupport.OpenSQLite(t, seMenusSchema,
		`INSERT INTO se_menus (id, tenant_code, name, sort) VALUES
			(1, '01', '系统管理', 1),
			(2, '02', '系统设置', 2),
			(3, '1', '用户中心', 3),
			(4, '0', '日志', 4)`,
	)
}

func TestEntities_Bind(t *testing.T) {
	entities := NewEntities(seedMenus(t))

	ent, err := entities.Bind(&seMenu{})
	require.NoError(t, err)
	assert.Equal(t, "se_menus", ent.Table)
	assert.ElementsMatch(t, []string{"id", "tenant_code", "name", "sort"}, ent.Columns)
	assert.True(t, ent.HasColumn("tenant_code"))
	assert.False(t, ent.HasColumn("tenantCode"))

	again, err := EntityOf[seMenu](entities)
	require.NoError(t, err)
	assert.Same(t, ent, again)

	sql, err := ent.Fragment().QuerySQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM se_menus", sql)
}

func TestEntities_BindRequiresTable(t *testing.T) {
	entities := NewEntities(seedMenus(t))

	_, err := entities.Bind(untabled{})
	assert.True(t, errors.Is(err, ErrMissingTable))

	var cfgErr *ConfigError
	_, err = entities.Bind(42)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Entity", cfgErr.Field)

	assert.Panics(t, func() { entities.MustBind(&untabled{}) })
	assert.NotPanics(t, func() { entities.MustBind(&seMenu{}) })
}

func TestCriteria_Select(t *testing.T) {
	db := seedMenus(t)
	ctx := context.Background()

	preds := NewSynthesizer(nil, nil).Predicates(map[string]any{
		"tenantCode": "0",
		"name":       "系统",
	}, "")

	var rows []seMenu
	err := CriteriaOf(preds...).Select()(db.NewSelect().Model(&rows)).OrderExpr("id ASC").Scan(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)

	preds = NewSynthesizer(nil, nil).Predicates(map[string]any{
		"idIn":            []int{1, 3, 4},
		"sortGreaterThan": 1,
	}, "")

	rows = nil
	err = CriteriaOf(preds...).Select()(db.NewSelect().Model(&rows)).OrderExpr("id ASC").Scan(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].ID)
	assert.Equal(t, int64(4), rows[1].ID)
}

func TestBunWhere(t *testing.T) {
	query, args := bunWhere(Predicate{Column: "deleted_at", Operator: "IS NULL", Arity: ArityNone})
	assert.Equal(t, "deleted_at IS NULL", query)
	assert.Empty(t, args)

	query, args = bunWhere(Predicate{Column: "sort", Operator: "BETWEEN", Value: []any{1, 2}, Arity: ArityRange})
	assert.Equal(t, "sort BETWEEN ? AND ?", query)
	assert.Equal(t, []any{1, 2}, args)

	query, _ = bunWhere(Predicate{Column: "sort", Operator: "BETWEEN", Value: []any{1}, Arity: ArityRange})
	assert.Equal(t, "FALSE", query)

	query, args = bunWhere(Predicate{Column: "status", Operator: "IN", Value: []any{"a"}, Arity: ArityList})
	assert.Equal(t, "status IN (?)", query)
	assert.Len(t, args, 1)
}
