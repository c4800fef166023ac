// Package menus is the se_menus demo entity served by the criteria CLI.
package menus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Menu is one navigation entry of a tenant.
type Menu struct {
	bun.BaseModel `bun:"table:se_menus"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	TenantCode  string         `bun:"tenant_code,notnull" json:"tenantCode"`
	Name        string         `bun:"name,notnull" json:"name"`
	Path        string         `bun:"path" json:"path"`
	Sort        int            `bun:"sort" json:"sort"`
	Attrs       map[string]any `bun:"attrs,type:json" json:"attrs,omitempty"`
	CreatedTime time.Time      `bun:"created_time,nullzero,notnull,default:current_timestamp" json:"createdTime"`
	UpdatedTime time.Time      `bun:"updated_time,nullzero,notnull,default:current_timestamp" json:"updatedTime"`
}

// Query is the search request of the menus endpoint. Empty fields do not
// filter; page, size and sort drive pagination only.
type Query struct {
	TenantCode       string         `json:"tenantCode" form:"tenantCode"`
	Name             string         `json:"name" form:"name"`
	Path             string         `json:"path" form:"path"`
	PathStartingWith string         `json:"pathStartingWith" form:"pathStartingWith"`
	SortGreaterThan  *int           `json:"sortGreaterThan" form:"sortGreaterThan"`
	SortBetween      []int          `json:"sortBetween" form:"sortBetween"`
	IDIn             []string       `json:"idIn" form:"idIn"`
	Attrs            map[string]any `json:"attrs" form:"-"`

	Page int      `json:"page" form:"page" criteria:"-"`
	Size int      `json:"size" form:"size" criteria:"-"`
	Sort []string `json:"sort" form:"sort" criteria:"-"`
}

// DefaultPageSize applies when a query does not set one.
const DefaultPageSize = 10

// CreateSchema creates the se_menus table when it does not exist.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*Menu)(nil)).IfNotExists().Exec(ctx)
	return err
}
