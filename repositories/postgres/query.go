package postgres

import (
	"strconv"
	"strings"

	"github.com/upb/membership-backend/repositories"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// selectBuilder assembles a filtered SELECT with numbered placeholders.
// Conditions use ? which is rewritten to $n in order of appearance.
type selectBuilder struct {
	base    string
	conds   []string
	groupBy string
	order   string
	limit   string
	args    []interface{}
}

func newSelect(base string) *selectBuilder {
	return &selectBuilder{base: base}
}

func (b *selectBuilder) where(cond string, args ...interface{}) {
	for _, a := range args {
		b.args = append(b.args, a)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(b.args)), 1)
	}
	b.conds = append(b.conds, cond)
}

func (b *selectBuilder) group(by string) {
	b.groupBy = by
}

func (b *selectBuilder) orderBy(order string) {
	b.order = order
}

func (b *selectBuilder) paginate(page repositories.Page) {
	if page.Limit <= 0 {
		return
	}
	b.args = append(b.args, page.Limit)
	b.limit = " LIMIT $" + strconv.Itoa(len(b.args))
	b.args = append(b.args, page.Offset)
	b.limit += " OFFSET $" + strconv.Itoa(len(b.args))
}

func (b *selectBuilder) String() string {
	var sb strings.Builder
	sb.WriteString(b.base)
	if len(b.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conds, " AND "))
	}
	if b.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(b.groupBy)
	}
	if b.order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.order)
	}
	sb.WriteString(b.limit)
	return sb.String()
}
