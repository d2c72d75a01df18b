package db

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// The root node always lives on the first page of the file.
const rootPageID pageID = 0

// Table is an open database file holding a single B-tree of rows keyed by ID.
// A Table must not be used from more than one goroutine.
type Table struct {
	pager      *pager
	rootPageID pageID
	full       bool

	logger   *zap.Logger
	registry prometheus.Registerer
	metrics  *pagerMetrics
}

type options struct {
	logger   *zap.Logger
	registry prometheus.Registerer
	maxPages int
}

// Option configures Open and Create.
type Option func(*options)

// WithLogger sets the logger used for debug output. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the pager metrics with reg. The metrics are
// unregistered again when the table is closed.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithMaxPages limits the number of pages in the file. Inserts that would
// need more pages fail with ErrTableFull.
func WithMaxPages(n int) Option {
	return func(o *options) {
		o.maxPages = n
	}
}

// Open opens the database file at path, creating it if it does not exist.
func Open(path string, opts ...Option) (*Table, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return newTable(file, opts)
}

// Create creates an empty database file at path, truncating any existing file.
func Create(path string, opts ...Option) (*Table, error) {
	file, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return newTable(file, opts)
}

func newTable(file *dbFile, opts []Option) (*Table, error) {
	o := options{
		logger:   zap.NewNop(),
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxPages < 1 {
		err := errors.Wrapf(ErrInput, "max pages must be positive, got %d", o.maxPages)
		return nil, multierr.Append(err, file.close())
	}
	logger := o.logger.With(zap.String("path", file.path))

	metrics, err := newPagerMetrics(o.registry)
	if err != nil {
		metrics.unregister(o.registry)
		return nil, multierr.Append(errors.Wrap(err, "db: register metrics"), file.close())
	}
	pgr, err := newPager(file, o.maxPages, logger, metrics)
	if err != nil {
		metrics.unregister(o.registry)
		return nil, multierr.Append(err, file.close())
	}
	tbl := &Table{
		pager:      pgr,
		rootPageID: rootPageID,
		logger:     logger,
		registry:   o.registry,
		metrics:    metrics,
	}
	if pgr.numPages == 0 {
		root, err := pgr.allocatePage()
		if err != nil {
			return nil, multierr.Append(err, tbl.Close())
		}
		root.initLeaf()
		root.setRoot(true)
	}
	logger.Debug("opened table", zap.Int("pages", pgr.numPages))
	return tbl, nil
}

// Close flushes every modified page and closes the file.
func (tbl *Table) Close() error {
	err := tbl.pager.close()
	tbl.metrics.unregister(tbl.registry)
	tbl.registry = nil
	tbl.logger.Debug("closed table")
	return err
}

// Insert adds row to the table. It fails with ErrDuplicateKey if a row with
// the same ID exists, ErrInput if the row does not fit its columns and
// ErrTableFull if the file has no room for the pages the insert needs.
func (tbl *Table) Insert(row Row) error {
	if tbl.full {
		return errors.Wrap(ErrTableFull, "table is full")
	}
	err := tbl.insert(row)
	if errors.Cause(err) == ErrTableFull {
		tbl.full = true
	}
	return err
}

// Scan returns a cursor positioned at the row with the smallest ID.
func (tbl *Table) Scan() (*Cursor, error) {
	return tableStart(tbl)
}

// Find returns a cursor positioned at key, or at the position key would be
// inserted at if it is not present.
func (tbl *Table) Find(key uint32) (*Cursor, error) {
	return tableFind(tbl, key)
}

// Select returns every row in ascending ID order.
func (tbl *Table) Select() ([]Row, error) {
	c, err := tbl.Scan()
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	for !c.End() {
		row, err := c.Value()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if err := c.Advance(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
