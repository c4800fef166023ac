package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"name":          "name",
		"tenantCode":    "tenant_code",
		"TenantCode":    "tenant_code",
		"userID":        "user_id",
		"HTTPStatus":    "http_status",
		"createdTime":   "created_time",
		"already_snake": "already_snake",
		"attrs.color":   "attrs_color",
		"level2Code":    "level2_code",
	}

	for in, want := range tests {
		assert.Equal(t, want, ToSnake(in), in)
	}
}

func TestLowerCamel(t *testing.T) {
	assert.Equal(t, "tenantCode", lowerCamel("TenantCode"))
	assert.Equal(t, "id", lowerCamel("ID"))
	assert.Equal(t, "urlPath", lowerCamel("URLPath"))
	assert.Equal(t, "name", lowerCamel("name"))
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "tenantCode", paramName("tenantCode"))
	assert.Equal(t, "attrs_color", paramName("attrs.color"))
	assert.Equal(t, "p_1st", paramName("1st"))
	assert.Equal(t, "p_", paramName(""))
	assert.Equal(t, "name__", paramName("name系统"))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, isIdentifier("tenant_code"))
	assert.True(t, isIdentifier("_x1"))
	assert.False(t, isIdentifier(""))
	assert.False(t, isIdentifier("1x"))
	assert.False(t, isIdentifier("name; DROP TABLE x"))
	assert.False(t, isIdentifier("a-b"))
}
