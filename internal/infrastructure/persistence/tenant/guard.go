// Package tenant keeps statements on tenant-owned tables inside one company.
//
// The guard does not add conditions. It rejects SELECT, UPDATE and DELETE
// statements on a guarded table whose WHERE clause never mentions the tenant
// column, so a store method that forgets its scope fails loudly instead of
// reading or rewriting another company's rows.
//
//	tenant.RegisterGuard(db, tenant.WithTables("documents"))
//	db.WithContext(tenant.CrossTenant(ctx)).Distinct("company_id") // opt out
package tenant

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultColumn is the tenant column of every guarded table
const DefaultColumn = "company_id"

// ErrUnscopedStatement is added to a statement that touches a guarded table
// without a tenant condition
var ErrUnscopedStatement = errors.New("statement on tenant table has no company_id condition")

type crossTenantKey struct{}

// CrossTenant marks ctx as allowed to read across companies. Only
// maintenance paths (metrics collection, tenant listing) should use it.
func CrossTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, crossTenantKey{}, true)
}

// IsCrossTenant reports whether ctx was marked by CrossTenant
func IsCrossTenant(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(crossTenantKey{}).(bool)
	return v
}

// Guard holds the callback state
type Guard struct {
	column string
	tables map[string]struct{}
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithColumn overrides the tenant column name
func WithColumn(column string) GuardOption {
	return func(g *Guard) {
		if column != "" {
			g.column = column
		}
	}
}

// WithTables sets the guarded tables
func WithTables(tables ...string) GuardOption {
	return func(g *Guard) {
		for _, t := range tables {
			g.tables[t] = struct{}{}
		}
	}
}

// NewGuard creates a guard. With no tables configured it guards "documents".
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		column: DefaultColumn,
		tables: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if len(g.tables) == 0 {
		g.tables["documents"] = struct{}{}
	}
	return g
}

// Register installs the guard on db's query, row, update and delete chains.
// Create is left alone: inserts carry the tenant in the row itself.
func (g *Guard) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:guard_query", g.check); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:guard_row", g.check); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:guard_update", g.check); err != nil {
		return err
	}
	return cb.Delete().Before("gorm:delete").Register("tenant:guard_delete", g.check)
}

// RegisterGuard is shorthand for NewGuard(opts...).Register(db)
func RegisterGuard(db *gorm.DB, opts ...GuardOption) error {
	return NewGuard(opts...).Register(db)
}

func (g *Guard) check(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || db.Error != nil {
		return
	}
	// raw SQL is written by hand and reviewed with its caller
	if stmt.SQL.Len() > 0 {
		return
	}
	if _, guarded := g.tables[stmt.Table]; !guarded {
		return
	}
	if IsCrossTenant(stmt.Context) {
		return
	}
	if g.scoped(stmt) {
		return
	}
	_ = db.AddError(ErrUnscopedStatement)
}

func (g *Guard) scoped(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.mentions(expr) {
			return true
		}
	}
	return false
}

// mentions reports whether expr constrains the tenant column for every row
// it matches. An OR branch does not count.
func (g *Guard) mentions(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return g.isColumn(e.Column)
	case clause.IN:
		return g.isColumn(e.Column)
	case clause.Expr:
		return g.inSQL(e.SQL)
	case clause.NamedExpr:
		return g.inSQL(e.SQL)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if g.mentions(cond) {
				return true
			}
		}
	}
	return false
}

func (g *Guard) isColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == g.column
	case string:
		return c == g.column || strings.HasSuffix(c, "."+g.column)
	}
	return false
}

// inSQL requires the column outside any OR, e.g. "company_id = ? AND id = ?"
func (g *Guard) inSQL(sql string) bool {
	lower := strings.ToLower(sql)
	if strings.Contains(lower, " or ") {
		return false
	}
	return strings.Contains(lower, g.column)
}
