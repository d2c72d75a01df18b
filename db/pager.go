package db

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// pager caches every page it has handed out until it is closed.
type pager struct {
	file     *dbFile
	pages    map[pageID]*page
	onDisk   int
	numPages int
	maxPages int
	closed   bool

	logger  *zap.Logger
	metrics *pagerMetrics
}

func newPager(file *dbFile, maxPages int, logger *zap.Logger, metrics *pagerMetrics) (*pager, error) {
	n, err := file.numPages()
	if err != nil {
		return nil, err
	}
	if n > maxPages {
		return nil, errors.Wrapf(ErrTableFull, "%s has %d pages, limit is %d", file.path, n, maxPages)
	}
	metrics.pages.Set(float64(n))
	return &pager{
		file:     file,
		pages:    map[pageID]*page{},
		onDisk:   n,
		numPages: n,
		maxPages: maxPages,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// getPage returns a page of the file. Pages past the end are only created
// by allocatePage.
func (pgr *pager) getPage(id pageID) (*page, error) {
	if p, ok := pgr.pages[id]; ok {
		pgr.metrics.cacheHits.Inc()
		return p, nil
	}
	if int64(id) >= int64(pgr.onDisk) {
		return nil, errors.Wrapf(ErrCorruption, "page %d is past the end of the file (%d pages)", id, pgr.numPages)
	}
	p, err := pgr.file.readPage(id)
	if err != nil {
		return nil, err
	}
	pgr.metrics.diskReads.Inc()
	pgr.logger.Debug("loaded page", zap.Uint32("page", uint32(id)))
	pgr.pages[id] = p
	return p, nil
}

// node returns a page that has passed header validation.
func (pgr *pager) node(id pageID) (*page, error) {
	p, err := pgr.getPage(id)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (pgr *pager) unusedPageID() pageID {
	return pageID(pgr.numPages)
}

func (pgr *pager) freePages() int {
	return pgr.maxPages - pgr.numPages
}

func (pgr *pager) allocatePage() (*page, error) {
	id := pgr.unusedPageID()
	if pgr.freePages() <= 0 {
		return nil, errors.Wrapf(ErrTableFull, "cannot allocate page %d", id)
	}
	p := newPage(id, make([]byte, pageSize))
	p.dirty = true
	pgr.pages[id] = p
	pgr.numPages++
	pgr.metrics.pages.Set(float64(pgr.numPages))
	pgr.metrics.allocations.Inc()
	pgr.logger.Debug("allocated page", zap.Uint32("page", uint32(id)))
	return p, nil
}

func (pgr *pager) flush(id pageID) error {
	p, ok := pgr.pages[id]
	if !ok {
		return errors.Wrapf(ErrBounds, "flush of page %d which is not cached", id)
	}
	if err := pgr.file.writePage(p); err != nil {
		return err
	}
	p.dirty = false
	if int(id) >= pgr.onDisk {
		pgr.onDisk = int(id) + 1
	}
	pgr.metrics.pageWrites.Inc()
	return nil
}

func (pgr *pager) flushAll() error {
	ids := make([]pageID, 0, len(pgr.pages))
	for id, p := range pgr.pages {
		if p.dirty {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var err error
	for _, id := range ids {
		err = multierr.Append(err, pgr.flush(id))
	}
	pgr.logger.Debug("flushed pages", zap.Int("count", len(ids)))
	return err
}

func (pgr *pager) close() error {
	if pgr.closed {
		return nil
	}
	pgr.closed = true
	err := pgr.flushAll()
	err = multierr.Append(err, pgr.file.sync())
	err = multierr.Append(err, pgr.file.close())
	pgr.pages = nil
	return err
}
