package db

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func TestRowRoundTrip(t *testing.T) {
	fixture := []Row{
		{ID: 0},
		{ID: 1, Username: "john", Email: "john@x"},
		{ID: 4294967295, Username: "a", Email: "b"},
		{ID: 42, Username: strings.Repeat("u", ColumnUsernameSize), Email: strings.Repeat("e", ColumnEmailSize)},
		{ID: 7, Username: "ünïcödé", Email: "ü@example.com"},
	}
	buf := make([]byte, rowSize)
	for _, row := range fixture {
		assert.NilError(t, encodeRow(row, buf))
		got, err := decodeRow(buf)
		assert.NilError(t, err)
		assert.DeepEqual(t, row, got)
	}
}

func TestRowEncodeOverwritesPadding(t *testing.T) {
	buf := make([]byte, rowSize)
	assert.NilError(t, encodeRow(Row{ID: 1, Username: "abcdefgh", Email: "long@example.com"}, buf))
	assert.NilError(t, encodeRow(Row{ID: 2, Username: "ab", Email: "s@x"}, buf))
	got, err := decodeRow(buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, Row{ID: 2, Username: "ab", Email: "s@x"}, got)
}

func TestRowLayout(t *testing.T) {
	buf := make([]byte, rowSize)
	assert.NilError(t, encodeRow(Row{ID: 0x01020304, Username: "x", Email: "y"}, buf))
	assert.DeepEqual(t, []byte{4, 3, 2, 1}, buf[:4])
	assert.Equal(t, byte('x'), buf[usernameOffset])
	assert.Equal(t, byte(0), buf[usernameOffset+1])
	assert.Equal(t, byte('y'), buf[emailOffset])
	assert.Equal(t, 291, rowSize)
}

func TestRowTooLong(t *testing.T) {
	buf := make([]byte, rowSize)
	tests := []Row{
		{ID: 1, Username: strings.Repeat("u", ColumnUsernameSize+1)},
		{ID: 1, Email: strings.Repeat("e", ColumnEmailSize+1)},
		{ID: 1, Username: "nul\x00byte"},
	}
	for _, row := range tests {
		err := encodeRow(row, buf)
		assert.Equal(t, ErrInput, errors.Cause(err))
	}
}

func TestRowShortBuffer(t *testing.T) {
	_, err := decodeRow(make([]byte, rowSize-1))
	assert.Equal(t, ErrBounds, errors.Cause(err))
	err = encodeRow(Row{ID: 1}, make([]byte, 10))
	assert.Equal(t, ErrBounds, errors.Cause(err))
}
