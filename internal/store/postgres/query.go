package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// query accumulates a SELECT with positional arguments.
type query struct {
	sb   strings.Builder
	args []any
}

func newQuery(base string) *query {
	q := &query{}
	q.sb.WriteString(base)
	q.sb.WriteString(" WHERE 1=1")
	return q
}

// where appends " AND <cond>" where cond contains a single "?" placeholder
// for value.
func (q *query) where(cond string, value any) {
	q.args = append(q.args, value)
	q.sb.WriteString(" AND ")
	q.sb.WriteString(strings.Replace(cond, "?", fmt.Sprintf("$%d", len(q.args)), 1))
}

func (q *query) raw(s string) {
	q.sb.WriteString(s)
}

// page applies time bounds on col, ordering and limit/offset.
func (q *query) page(col, order string, opts domain.ListOpts) {
	if opts.Since != nil {
		q.where(col+" >= ?", *opts.Since)
	}
	if opts.Until != nil {
		q.where(col+" <= ?", *opts.Until)
	}
	q.sb.WriteString(" ORDER BY " + order)
	if opts.Limit > 0 {
		q.args = append(q.args, opts.Limit)
		q.sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(q.args)))
	}
	if opts.Offset > 0 {
		q.args = append(q.args, opts.Offset)
		q.sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(q.args)))
	}
}

func (q *query) String() string { return q.sb.String() }
