package mock

import (
	"fmt"

	"github.com/kndndrj/rowcsv/core"
)

// User is a sample entity with id, name and value attributes.
type User struct {
	ID    int     `db:"id"`
	Name  string  `db:"name"`
	Value float64 `db:"value"`
}

func (User) EntityKind() string { return "User" }

// NewUsers returns mary, joe and susan, all with value 12.31.
func NewUsers() []*User {
	var users []*User
	for i, name := range []string{"mary", "joe", "susan"} {
		users = append(users, &User{ID: i + 1, Name: name, Value: 12.31})
	}
	return users
}

// EntityRows returns each user as a bare entity row.
func EntityRows(users []*User) []core.Row {
	var rows []core.Row
	for _, u := range users {
		rows = append(rows, core.RowOf(core.MustStructEntity(u)))
	}
	return rows
}

// ColumnRows returns each user as a row with a single "User" column holding the entity.
// With duplicate set, the entity is selected twice.
func ColumnRows(users []*User, duplicate bool) []core.Row {
	var rows []core.Row
	for _, u := range users {
		e := core.MustStructEntity(u)
		row := core.Row{core.Column("User", e)}
		if duplicate {
			row = append(row, core.Column("User", e))
		}
		rows = append(rows, row)
	}
	return rows
}

// NewRows returns a slice of rows in form of:
//
//	{ id: <index>(int), name: "row_<index>"(string) }
//
// where the first index is "from" and the last one is one less than "to".
func NewRows(from, to int) []core.Row {
	var rows []core.Row

	for i := from; i < to; i++ {
		rows = append(rows, core.Classify(core.Header{"id", "name"}, []any{i, fmt.Sprintf("row_%d", i)}))
	}
	return rows
}
