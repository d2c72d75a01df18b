package cmd

import (
	"math"
	"strconv"
	"strings"

	"github.com/aita/btreedb/db"
	"github.com/pkg/errors"
)

var (
	errSyntax        = errors.New("syntax error, could not parse statement")
	errNegativeID    = errors.New("ID must be positive")
	errStringTooLong = errors.New("string too long")
	errUnrecognized  = errors.New("unrecognized statement")
)

type statementType int

const (
	statementInsert statementType = iota
	statementSelect
)

type statement struct {
	typ statementType
	row db.Row
}

func prepareStatement(line string) (statement, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return statement{}, errUnrecognized
	}
	switch fields[0] {
	case "insert":
		row, err := parseRow(fields[1:])
		if err != nil {
			return statement{}, err
		}
		return statement{typ: statementInsert, row: row}, nil
	case "select":
		if len(fields) != 1 {
			return statement{}, errSyntax
		}
		return statement{typ: statementSelect}, nil
	}
	return statement{}, errUnrecognized
}

// parseRow parses the id, username and email arguments of an insert.
func parseRow(args []string) (db.Row, error) {
	if len(args) != 3 {
		return db.Row{}, errSyntax
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return db.Row{}, errSyntax
	}
	if id < 0 {
		return db.Row{}, errNegativeID
	}
	if id > math.MaxUint32 {
		return db.Row{}, errSyntax
	}
	row := db.Row{ID: uint32(id), Username: args[1], Email: args[2]}
	if err := row.Validate(); err != nil {
		return db.Row{}, errStringTooLong
	}
	return row, nil
}
