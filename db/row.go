package db

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	ColumnUsernameSize = 32
	ColumnEmailSize    = 255

	idSize         = 4
	usernameSize   = ColumnUsernameSize
	emailSize      = ColumnEmailSize
	idOffset       = 0
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + usernameSize
	rowSize        = idSize + usernameSize + emailSize
)

// Row is the single record type stored in a table. ID is the B-tree key.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}

// Validate reports an ErrInput if a text field does not fit its column.
func (r Row) Validate() error {
	if err := validateColumn("username", r.Username, ColumnUsernameSize); err != nil {
		return err
	}
	return validateColumn("email", r.Email, ColumnEmailSize)
}

func validateColumn(name, value string, size int) error {
	if len(value) > size {
		return errors.Wrapf(ErrInput, "%s is %d bytes, limit is %d", name, len(value), size)
	}
	if bytes.IndexByte([]byte(value), 0) >= 0 {
		return errors.Wrapf(ErrInput, "%s contains a NUL byte", name)
	}
	return nil
}

func encodeRow(r Row, dst []byte) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if len(dst) < rowSize {
		return errors.Wrapf(ErrBounds, "row buffer is %d bytes, need %d", len(dst), rowSize)
	}
	binary.LittleEndian.PutUint32(dst[idOffset:], r.ID)
	putText(dst[usernameOffset:usernameOffset+usernameSize], r.Username)
	putText(dst[emailOffset:emailOffset+emailSize], r.Email)
	return nil
}

func decodeRow(src []byte) (Row, error) {
	if len(src) < rowSize {
		return Row{}, errors.Wrapf(ErrBounds, "row buffer is %d bytes, need %d", len(src), rowSize)
	}
	return Row{
		ID:       binary.LittleEndian.Uint32(src[idOffset:]),
		Username: text(src[usernameOffset : usernameOffset+usernameSize]),
		Email:    text(src[emailOffset : emailOffset+emailSize]),
	}, nil
}

// putText zero-pads s into dst.
func putText(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func text(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}
