package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mmdatafocus/billing_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrCrossTenantWrite is returned when a row is inserted for a tenant other
// than the one on the request context.
var ErrCrossTenantWrite = errors.New("tenant guard: row belongs to another tenant")

const (
	tenantTable  = "tenants"
	tenantColumn = "tenant_id"
)

var guardColumnPatterns = map[string]*regexp.Regexp{
	"id":         regexp.MustCompile(`(?i)(^|[^a-z0-9_])id([^a-z0-9_]|$)`),
	tenantColumn: regexp.MustCompile(`(?i)(^|[^a-z0-9_])tenant_id([^a-z0-9_]|$)`),
}

// TenantGuardPlugin pins every gorm statement run with a tenant on the context
// to that tenant. The tenants table is pinned on its primary key, every other
// table on tenant_id. Raw SQL is not guarded.
// Operator tools turn it off with appctx.ContextKeySkipTenantScope.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant_guard:query", scopeToTenant); err != nil {
		return fmt.Errorf("tenant guard query callback: %w", err)
	}
	if err := cb.Row().Before("gorm:row").Register("tenant_guard:row", scopeToTenant); err != nil {
		return fmt.Errorf("tenant guard row callback: %w", err)
	}
	if err := cb.Update().Before("gorm:update").Register("tenant_guard:update", scopeToTenant); err != nil {
		return fmt.Errorf("tenant guard update callback: %w", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", scopeToTenant); err != nil {
		return fmt.Errorf("tenant guard delete callback: %w", err)
	}
	if err := cb.Create().Before("gorm:create").Register("tenant_guard:create", checkCreateTenant); err != nil {
		return fmt.Errorf("tenant guard create callback: %w", err)
	}
	return nil
}

// guardedColumn is the column that carries the tenant for s, or "" when the
// table is not tenant owned.
func guardedColumn(s *schema.Schema) string {
	if s == nil {
		return ""
	}
	if s.Table == tenantTable {
		return "id"
	}
	if _, ok := s.FieldsByDBName[tenantColumn]; ok {
		return tenantColumn
	}
	return ""
}

func guardTenant(db *gorm.DB) (string, bool) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return "", false
	}
	ctx := db.Statement.Context
	if shouldBypassTenantScope(ctx) {
		return "", false
	}
	tenantId := tenantIdFromContext(ctx)
	return tenantId, tenantId != ""
}

func scopeToTenant(db *gorm.DB) {
	tenantId, ok := guardTenant(db)
	if !ok {
		return
	}
	column := guardedColumn(db.Statement.Schema)
	if column == "" {
		return
	}
	// the store already filters by tenant; the guard covers statements that forget to
	if whereMentions(db.Statement.Clauses["WHERE"], column) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: column},
				Value:  tenantId,
			},
		},
	})
}

// checkCreateTenant rejects inserts of rows owned by another tenant. Inserting
// into the tenants table itself is onboarding and is not checked.
func checkCreateTenant(db *gorm.DB) {
	tenantId, ok := guardTenant(db)
	if !ok {
		return
	}
	s := db.Statement.Schema
	if guardedColumn(s) != tenantColumn {
		return
	}
	field := s.FieldsByDBName[tenantColumn]
	rv := reflect.Indirect(db.Statement.ReflectValue)

	check := func(row reflect.Value) {
		v, zero := field.ValueOf(db.Statement.Context, reflect.Indirect(row))
		if zero {
			return
		}
		if owner, _ := v.(string); owner != tenantId {
			_ = db.AddError(fmt.Errorf("%w: %s row for %q", ErrCrossTenantWrite, s.Table, owner))
		}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			check(rv.Index(i))
		}
	case reflect.Struct:
		check(rv)
	}
}

func tenantIdFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyTenantId); ok {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope)
	return ok && v
}

func whereMentions(c clause.Clause, column string) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprMentions(e, column) {
			return true
		}
	}
	return false
}

func exprMentions(e clause.Expression, column string) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isColumn(v.Column, column)
	case clause.IN:
		return isColumn(v.Column, column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprMentions(x, column) {
				return true
			}
		}
	case clause.Expr:
		return guardColumnPatterns[column].MatchString(v.SQL)
	}
	// OR branches and range predicates do not pin a single tenant
	return false
}

func isColumn(col any, column string) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, column)
	case clause.Column:
		return strings.EqualFold(c.Name, column)
	}
	return false
}
