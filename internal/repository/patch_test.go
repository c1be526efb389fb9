package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestBuildUpdate(t *testing.T) {
	patch := WorkshopPatch{
		Name:     ptr("Chess"),
		Capacity: ptr(30),
		Active:   ptr(false),
	}

	query, args := buildUpdate("workshops", patch.assignments(), "w-1", "id")

	assert.Equal(t,
		"UPDATE workshops SET name = $1, capacity = $2, active = $3, updated_at = now() WHERE id = $4 RETURNING id",
		query)
	assert.Equal(t, []any{"Chess", 30, false, "w-1"}, args)
}

func TestBuildUpdate_ClearInstructor(t *testing.T) {
	patch := WorkshopPatch{SetInstructor: true}

	query, args := buildUpdate("workshops", patch.assignments(), "w-1", "")

	assert.Equal(t, "UPDATE workshops SET instructor_id = $1, updated_at = now() WHERE id = $2", query)
	assert.Len(t, args, 2)
	assert.Nil(t, args[0])
}

func TestBuildUpdate_ValuesNeverReachQueryText(t *testing.T) {
	hostile := "x'; DROP TABLE workshops; --"
	patch := WorkshopPatch{Name: &hostile, Category: &hostile}

	query, args := buildUpdate("workshops", patch.assignments(), hostile, "")

	assert.NotContains(t, query, "DROP")
	assert.Equal(t, []any{hostile, hostile, hostile}, args)
}

func TestWorkshopPatch_Empty(t *testing.T) {
	assert.True(t, WorkshopPatch{}.Empty())
	assert.False(t, WorkshopPatch{Active: ptr(true)}.Empty())
	assert.False(t, WorkshopPatch{SetInstructor: true}.Empty())
}

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())

	w.add("category = $%d", "music")
	w.add("(a ILIKE $%[1]d OR b ILIKE $%[1]d)", "%x%")
	assert.Equal(t, " WHERE category = $1 AND (a ILIKE $2 OR b ILIKE $2)", w.sql())
	assert.Equal(t, " LIMIT $3 OFFSET $4", w.page(20, 40))
	assert.Equal(t, []any{"music", "%x%", 20, 40}, w.args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b\\c`, escapeLike(`a_b\c`))
	assert.Equal(t, "García", escapeLike("García"))
}
