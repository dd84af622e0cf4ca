// Package query translates untrusted request parameters into safe SQL
// SELECT statements. Filtering, sorting, field projection and pagination
// are independent stages; an absent parameter leaves its stage as the
// identity transformation. Every column reference is validated against a
// per-resource Schema so client input can never name a column or operator
// that was not explicitly allowed.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Reserved top-level parameter names. These drive their own stages and are
// never interpreted as filter clauses.
const (
	paramPage   = "page"
	paramSort   = "sort"
	paramLimit  = "limit"
	paramFields = "fields"
)

// DefaultLimit is the page size used when the client does not send one.
const DefaultLimit = 100

// comparison operators accepted inside bracket keys, e.g. price[gte]=100.
// Anything outside this vocabulary is dropped before it can reach SQL.
var sqlOps = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
	"eq":  "=",
}

// Schema describes which columns of a resource the engine may touch.
// Columns absent from these sets are invisible to clients: they cannot be
// filtered, sorted or projected, no matter what the request says.
type Schema struct {
	Filterable  map[string]bool
	Sortable    map[string]bool
	Selectable  []string        // default projection, in column order
	selectable  map[string]bool // built lazily from Selectable
	DefaultSort string          // e.g. "created_at DESC"
	MaxLimit    int             // page size cap; DefaultLimit when zero
}

func (s *Schema) canSelect(col string) bool {
	if s.selectable == nil {
		s.selectable = make(map[string]bool, len(s.Selectable))
		for _, c := range s.Selectable {
			s.selectable[c] = true
		}
	}
	return s.selectable[col]
}

// Filter is a single comparison clause: Column <op> Value.
type Filter struct {
	Column string
	Op     string // SQL operator, already mapped from the request vocabulary
	Value  string
}

// SortKey is one ORDER BY component.
type SortKey struct {
	Column string
	Desc   bool
}

// Spec is the refined query built from one request. It is ephemeral and
// carries only validated column names and clamped integers.
type Spec struct {
	Filters []Filter
	Sort    []SortKey
	Fields  []string
	Page    int
	Limit   int

	schema *Schema
}

// Parse builds a Spec from raw request parameters against a schema.
// Unknown fields, unknown operators and malformed numbers are ignored
// rather than rejected: a hostile parameter degrades to the identity
// transformation for its stage.
func Parse(values url.Values, schema *Schema) Spec {
	sp := Spec{Page: 1, Limit: DefaultLimit, schema: schema}

	for key, vals := range values {
		name, op := splitFilterKey(key)
		if isReserved(name) {
			continue
		}
		sqlOp, ok := sqlOps[op]
		if !ok || !schema.Filterable[name] {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			sp.Filters = append(sp.Filters, Filter{Column: name, Op: sqlOp, Value: v})
		}
	}

	sp.Sort = parseSort(values.Get(paramSort), schema)
	sp.Fields = parseFields(values.Get(paramFields), schema)

	if n, err := strconv.Atoi(values.Get(paramPage)); err == nil && n > 0 {
		sp.Page = n
	}
	max := schema.MaxLimit
	if max <= 0 {
		max = DefaultLimit
	}
	if n, err := strconv.Atoi(values.Get(paramLimit)); err == nil && n > 0 {
		sp.Limit = n
	}
	if sp.Limit > max {
		sp.Limit = max
	}
	return sp
}

// splitFilterKey splits "price[gte]" into ("price", "gte"). A bare key is
// an equality clause.
func splitFilterKey(key string) (name, op string) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, "eq"
	}
	return key[:open], key[open+1 : len(key)-1]
}

func isReserved(name string) bool {
	switch name {
	case paramPage, paramSort, paramLimit, paramFields:
		return true
	}
	return false
}

// parseSort handles the comma-separated sort list. A leading '-' marks a
// descending key. Columns not in the sortable set are skipped; when
// nothing valid remains the schema default applies.
func parseSort(raw string, schema *Schema) []SortKey {
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		col := strings.TrimPrefix(part, "-")
		if col == "" || !schema.Sortable[col] {
			continue
		}
		keys = append(keys, SortKey{Column: col, Desc: desc})
	}
	return keys
}

// parseFields intersects the requested projection with the selectable set.
// Columns the schema does not expose (password hashes, internal flags) can
// never be projected, regardless of the request.
func parseFields(raw string, schema *Schema) []string {
	if raw == "" {
		return nil
	}
	var cols []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		col := strings.TrimSpace(part)
		if col == "" || seen[col] || !schema.canSelect(col) {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	return cols
}

// Columns returns the projection for this spec: the requested subset when
// present, otherwise the schema's full selectable list.
func (sp Spec) Columns() []string {
	if len(sp.Fields) > 0 {
		return sp.Fields
	}
	return sp.schema.Selectable
}

// Offset returns the row offset implied by page and limit.
func (sp Spec) Offset() int {
	return (sp.Page - 1) * sp.Limit
}

// WhereSQL renders the filter clauses as a WHERE condition with placeholder
// args. extra conditions (e.g. "active = 1") are prepended verbatim; they
// come from code, not from the client.
func (sp Spec) WhereSQL(extra ...string) (string, []any) {
	conds := append([]string{}, extra...)
	args := make([]any, 0, len(sp.Filters))
	for _, f := range sp.Filters {
		conds = append(conds, f.Column+" "+f.Op+" ?")
		args = append(args, f.Value)
	}
	if len(conds) == 0 {
		return "1=1", nil
	}
	return strings.Join(conds, " AND "), args
}

// OrderSQL renders the ORDER BY component, falling back to the schema
// default when the request did not provide valid sort keys.
func (sp Spec) OrderSQL() string {
	if len(sp.Sort) == 0 {
		return sp.schema.DefaultSort
	}
	parts := make([]string, 0, len(sp.Sort))
	for _, k := range sp.Sort {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, k.Column+" "+dir)
	}
	return strings.Join(parts, ", ")
}

// SelectSQL renders the full statement for a table with placeholder args.
// LIMIT/OFFSET are bound as args the same way the data queries elsewhere in
// the repository layer do it.
func (sp Spec) SelectSQL(table string, extraWhere ...string) (string, []any) {
	where, args := sp.WhereSQL(extraWhere...)
	sql := "SELECT " + strings.Join(sp.Columns(), ", ") +
		" FROM " + table +
		" WHERE " + where +
		" ORDER BY " + sp.OrderSQL() +
		" LIMIT ? OFFSET ?"
	args = append(args, sp.Limit, sp.Offset())
	return sql, args
}
