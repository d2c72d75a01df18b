package db

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Sink is the storage pages are read from and written to.
type Sink interface {
	io.Closer
	io.WriterAt
	io.ReaderAt

	Size() (int64, error)
	Sync() error
}

type fileSink struct {
	*os.File
}

func (sink fileSink) Size() (int64, error) {
	stat, err := sink.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

type dbFile struct {
	sink Sink
	path string
}

func createFile(path string) (*dbFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "db: create %s", path)
	}
	return &dbFile{sink: fileSink{file}, path: path}, nil
}

func openFile(path string) (*dbFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "db: open %s", path)
	}
	df := &dbFile{sink: fileSink{file}, path: path}
	size, err := df.sink.Size()
	if err != nil {
		err = multierr.Append(errors.Wrapf(err, "db: stat %s", path), df.close())
		return nil, err
	}
	if size%pageSize != 0 {
		err = errors.Wrapf(ErrCorruption, "%s is not a whole number of pages (%d bytes)", path, size)
		err = multierr.Append(err, df.close())
		return nil, err
	}
	return df, nil
}

func (file *dbFile) close() error {
	return file.sink.Close()
}

func (file *dbFile) sync() error {
	return errors.Wrapf(file.sink.Sync(), "db: sync %s", file.path)
}

func (file *dbFile) readBlock(id pageID, buf []byte) error {
	off := int64(id) * pageSize
	n, err := file.sink.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrCorruption, "page %d: short read of %d bytes", id, n)
	}
	return errors.Wrapf(err, "db: read page %d", id)
}

func (file *dbFile) writeBlock(id pageID, buf []byte) error {
	off := int64(id) * pageSize
	_, err := file.sink.WriteAt(buf, off)
	return errors.Wrapf(err, "db: write page %d", id)
}

func (file *dbFile) numPages() (n int, err error) {
	size, err := file.sink.Size()
	if err != nil {
		err = errors.Wrapf(err, "db: stat %s", file.path)
		return
	}
	n = int(size / pageSize)
	return
}

func (file *dbFile) readPage(id pageID) (*page, error) {
	buf := make([]byte, pageSize)
	if err := file.readBlock(id, buf); err != nil {
		return nil, err
	}
	return newPage(id, buf), nil
}

func (file *dbFile) writePage(p *page) error {
	return file.writeBlock(p.id, p.buf)
}
