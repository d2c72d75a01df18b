package cmd

import (
	"strings"
	"testing"

	"github.com/aita/btreedb/db"
	"gotest.tools/v3/assert"
)

func TestPrepareStatement(t *testing.T) {
	tests := []struct {
		line string
		stmt statement
		err  error
	}{
		{"insert 1 john john@x", statement{typ: statementInsert, row: db.Row{ID: 1, Username: "john", Email: "john@x"}}, nil},
		{"  insert   2 jane   jane@x ", statement{typ: statementInsert, row: db.Row{ID: 2, Username: "jane", Email: "jane@x"}}, nil},
		{"insert 4294967295 a b", statement{typ: statementInsert, row: db.Row{ID: 4294967295, Username: "a", Email: "b"}}, nil},
		{"select", statement{typ: statementSelect}, nil},
		{"insert -1 a b", statement{}, errNegativeID},
		{"insert 4294967296 a b", statement{}, errSyntax},
		{"insert x a b", statement{}, errSyntax},
		{"insert 1 a", statement{}, errSyntax},
		{"insert 1 a b c", statement{}, errSyntax},
		{"select *", statement{}, errSyntax},
		{"insert 1 " + strings.Repeat("a", db.ColumnUsernameSize+1) + " b", statement{}, errStringTooLong},
		{"insert 1 a " + strings.Repeat("a", db.ColumnEmailSize+1), statement{}, errStringTooLong},
		{"insert 1 " + strings.Repeat("a", db.ColumnUsernameSize) + " " + strings.Repeat("a", db.ColumnEmailSize), statement{
			typ: statementInsert,
			row: db.Row{ID: 1, Username: strings.Repeat("a", db.ColumnUsernameSize), Email: strings.Repeat("a", db.ColumnEmailSize)},
		}, nil},
		{"update 1", statement{}, errUnrecognized},
		{"", statement{}, errUnrecognized},
	}
	for _, tt := range tests {
		stmt, err := prepareStatement(tt.line)
		assert.Equal(t, tt.err, err, "line %q", tt.line)
		assert.Equal(t, tt.stmt, stmt, "line %q", tt.line)
	}
}
