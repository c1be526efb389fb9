package repository

import (
	"fmt"
	"strings"
)

// WorkshopPatch is a partial update of a workshop. Nil fields are left
// untouched. When SetInstructor is true InstructorID replaces the current
// assignment, with nil clearing it.
type WorkshopPatch struct {
	Name          *string
	Category      *string
	Capacity      *int
	Active        *bool
	SetInstructor bool
	InstructorID  *string
}

// Empty reports whether the patch changes nothing.
func (p WorkshopPatch) Empty() bool {
	return len(p.assignments()) == 0
}

type assignment struct {
	column string
	value  any
}

// assignments maps patch fields to their fixed column names.
func (p WorkshopPatch) assignments() []assignment {
	var out []assignment
	if p.Name != nil {
		out = append(out, assignment{"name", *p.Name})
	}
	if p.Category != nil {
		out = append(out, assignment{"category", *p.Category})
	}
	if p.Capacity != nil {
		out = append(out, assignment{"capacity", *p.Capacity})
	}
	if p.Active != nil {
		out = append(out, assignment{"active", *p.Active})
	}
	if p.SetInstructor {
		out = append(out, assignment{"instructor_id", p.InstructorID})
	}
	return out
}

// buildUpdate renders a parameterized UPDATE for a row keyed by id.
// Table, column and returning names are compile-time constants of this
// package; only values are bound as arguments.
func buildUpdate(table string, set []assignment, id string, returning string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(set)+1)

	b.WriteString("UPDATE ")
	b.WriteString(table)
	b.WriteString(" SET ")
	for i, a := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, a.value)
		fmt.Fprintf(&b, "%s = $%d", a.column, len(args))
	}
	if len(set) > 0 {
		b.WriteString(", ")
	}
	b.WriteString("updated_at = now()")

	args = append(args, id)
	fmt.Fprintf(&b, " WHERE id = $%d", len(args))
	if returning != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
	}
	return b.String(), args
}
