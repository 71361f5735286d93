package persistence

import (
	"errors"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/erp/connector/internal/domain/shared"
)

// firstAs loads the first row of query into M and converts it. A missing row
// becomes shared.ErrNotFound.
func firstAs[M any, D any](query *gorm.DB, convert func(*M) *D) (*D, error) {
	var row M
	err := query.First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, shared.ErrNotFound
	case err != nil:
		return nil, err
	}
	return convert(&row), nil
}

// sortSpec whitelists the columns a list endpoint may order by
type sortSpec struct {
	columns  []string
	fallback string
}

var productSort = sortSpec{
	columns:  []string{"id", "code", "name", "status", "selling_price", "created_at", "updated_at"},
	fallback: "created_at",
}

// column returns field if allowed, the fallback otherwise. Matching is
// case sensitive.
func (s sortSpec) column(field string) string {
	field = strings.TrimSpace(field)
	if slices.Contains(s.columns, field) {
		return field
	}
	return s.fallback
}

// direction is ASC only for an explicit "asc" in any case
func direction(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// orderBy turns untrusted list parameters into an ORDER BY clause
func (s sortSpec) orderBy(filter shared.Filter) string {
	return s.column(filter.OrderBy) + " " + direction(filter.OrderDir)
}
