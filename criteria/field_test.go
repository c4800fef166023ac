package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type menuRequest struct {
	Name        string    `json:"name"`
	TenantCode  string    `json:"tenantCode"`
	Sort        *int      `json:"sort"`
	Extend      string    `json:"extend"`
	CreatedTime time.Time `json:"createdTime"`
	Hidden      string    `json:"-"`
	Internal    string    `criteria:"-"`
	ParentID    string    `criteria:"parentIdIn"`
	private     string
}

type auditedRequest struct {
	menuRequest
	Path string
}

type listedRequest struct{}

func (listedRequest) CriteriaFields() []Field {
	return []Field{
		{Name: "code", Value: "A1"},
		{Name: "level", Column: "menu_level", Value: 2},
	}
}

func TestMapper_Struct(t *testing.T) {
	m := NewMapper()

	fields := m.Map(menuRequest{
		Name:        "系统",
		TenantCode:  "0",
		Extend:      "ignored",
		CreatedTime: time.Now(),
		Hidden:      "ignored",
		Internal:    "ignored",
		private:     "ignored",
	})

	require.Len(t, fields, 2)
	assert.Equal(t, Field{Name: "tenantCode", Column: "tenant_code", Value: "0"}, fields[0])
	assert.Equal(t, Field{Name: "name", Column: "name", Value: "系统"}, fields[1])
}

func TestMapper_StructZeroValuesAreAbsent(t *testing.T) {
	fields := NewMapper().Map(&menuRequest{})
	assert.Empty(t, fields)

	sort := 0
	fields = NewMapper().Map(&menuRequest{Sort: &sort})
	require.Len(t, fields, 1)
	assert.Equal(t, "sort", fields[0].Name)
	assert.Equal(t, &sort, fields[0].Value)
}

func TestMapper_CriteriaTagRenames(t *testing.T) {
	fields := NewMapper().Map(menuRequest{ParentID: "p1"})

	require.Len(t, fields, 1)
	assert.Equal(t, "parentIdIn", fields[0].Name)
	assert.Equal(t, "parent_id_in", fields[0].Column)
}

func TestMapper_EmbeddedStructsFlatten(t *testing.T) {
	fields := NewMapper().Map(auditedRequest{
		menuRequest: menuRequest{Name: "a"},
		Path:        "/sys",
	})

	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, "path", fields[1].Name)
}

func TestMapper_Map(t *testing.T) {
	fields := NewMapper().Map(map[string]any{
		"sort":       0,
		"name":       "x",
		"tenantCode": "01",
		"empty":      "",
		"nothing":    nil,
	})

	require.Len(t, fields, 3)
	assert.Equal(t, "tenantCode", fields[0].Name)
	assert.Equal(t, "name", fields[1].Name)
	assert.Equal(t, "sort", fields[2].Name)
	assert.Equal(t, 0, fields[2].Value)
}

func TestMapper_JSONContainer(t *testing.T) {
	fields := NewMapper().Map(map[string]any{
		"attrs": map[string]any{
			"color":  "red",
			"co-lor": "dropped",
		},
		"meta.size": 3,
	})

	require.Len(t, fields, 2)
	assert.Equal(t, Field{Name: "attrs.color", Column: "attrs", Path: "color", Value: "red"}, fields[0])
	assert.Equal(t, Field{Name: "meta.size", Column: "meta", Path: "size", Value: 3}, fields[1])
}

func TestMapper_Skip(t *testing.T) {
	m := NewMapper()

	fields := m.Map(map[string]any{"name": "x", "code": "y", "attrs.color": "red"}, "name", "attrs")
	require.Len(t, fields, 1)
	assert.Equal(t, "code", fields[0].Name)
}

func TestMapper_FieldLister(t *testing.T) {
	fields := NewMapper().Map(listedRequest{})

	require.Len(t, fields, 2)
	assert.Equal(t, "code", fields[0].Column)
	assert.Equal(t, "menu_level", fields[1].Column)
}

func TestMapper_Options(t *testing.T) {
	m := NewMapper(WithBaselineSkip("name"), WithTenantFields("orgCode"))

	fields := m.Map(map[string]any{"name": "x", "extend": "kept", "orgCode": "01"})
	require.Len(t, fields, 2)
	assert.Equal(t, "orgCode", fields[0].Name)
	assert.Equal(t, "extend", fields[1].Name)
	assert.True(t, m.IsTenantField("orgCode"))
	assert.False(t, m.IsTenantField("tenantCode"))
}

func TestMapper_NilAndUnsupported(t *testing.T) {
	m := NewMapper()

	assert.Nil(t, m.Map(nil))
	assert.Nil(t, m.Map((*menuRequest)(nil)))
	assert.Nil(t, m.Map("plain string"))
	assert.Nil(t, m.Map(map[int]any{1: "x"}))
}
