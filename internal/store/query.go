package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/complaint-cli/internal/model"
)

type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// stateQuery builds the SELECT used by ListStates. Pending states are
// returned oldest first so operators see the longest waiting complaints.
func stateQuery(f StateFilter, ph placeholder) (string, []any) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = next(string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Source != "" {
		where = append(where, "source = "+next(string(f.Source)))
	}
	if f.PendingOnly {
		where = append(where, "status <> "+next(string(model.StatusCompleted)))
	}
	if !f.UpdatedBefore.IsZero() {
		where = append(where, "updated_at < "+next(f.UpdatedBefore.UTC()))
	}

	q := "SELECT state FROM workflow_states"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY updated_at ASC, complaint_id ASC LIMIT " + next(f.limit())
	if f.Offset > 0 {
		q += " OFFSET " + next(f.Offset)
	}
	return q, args
}
