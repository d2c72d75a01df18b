package db

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func newTestPager(t *testing.T, path string, maxPages int) *pager {
	t.Helper()
	file, err := openFile(path)
	assert.NilError(t, err)
	metrics, err := newPagerMetrics(nil)
	assert.NilError(t, err)
	pgr, err := newPager(file, maxPages, zap.NewNop(), metrics)
	assert.NilError(t, err)
	return pgr
}

func TestPagerAllocateAndFlush(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()
	path := dir.Join("test.db")

	pgr := newTestPager(t, path, 10)
	assert.Equal(t, 0, pgr.numPages)
	for i := 0; i < 3; i++ {
		p, err := pgr.allocatePage()
		assert.NilError(t, err)
		assert.Equal(t, pageID(i), p.id)
		p.initLeaf()
		p.setParent(pageID(100 + i))
	}
	assert.Equal(t, 3, pgr.numPages)
	assert.Equal(t, 3.0, testutil.ToFloat64(pgr.metrics.allocations))

	p, err := pgr.getPage(1)
	assert.NilError(t, err)
	assert.Equal(t, pageID(101), p.parent())
	assert.Equal(t, 1.0, testutil.ToFloat64(pgr.metrics.cacheHits))

	assert.NilError(t, pgr.close())
	assert.NilError(t, pgr.close())
	assert.Equal(t, 3.0, testutil.ToFloat64(pgr.metrics.pageWrites))

	info, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Equal(t, int64(3*pageSize), info.Size())

	pgr = newTestPager(t, path, 10)
	defer pgr.close()
	assert.Equal(t, 3, pgr.numPages)
	p, err = pgr.getPage(2)
	assert.NilError(t, err)
	assert.Equal(t, pageID(102), p.parent())
	assert.Assert(t, !p.dirty)
	assert.Equal(t, 1.0, testutil.ToFloat64(pgr.metrics.diskReads))
}

func TestPagerOnlyWritesDirtyPages(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()
	path := dir.Join("test.db")

	pgr := newTestPager(t, path, 10)
	for i := 0; i < 2; i++ {
		p, err := pgr.allocatePage()
		assert.NilError(t, err)
		p.initLeaf()
	}
	assert.NilError(t, pgr.close())

	pgr = newTestPager(t, path, 10)
	_, err := pgr.getPage(0)
	assert.NilError(t, err)
	p, err := pgr.getPage(1)
	assert.NilError(t, err)
	p.setLeafNumCells(0)
	assert.NilError(t, pgr.close())
	assert.Equal(t, 1.0, testutil.ToFloat64(pgr.metrics.pageWrites))
}

func TestPagerLimit(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()

	pgr := newTestPager(t, dir.Join("test.db"), 2)
	defer pgr.close()
	_, err := pgr.allocatePage()
	assert.NilError(t, err)
	_, err = pgr.allocatePage()
	assert.NilError(t, err)
	_, err = pgr.allocatePage()
	assert.Equal(t, ErrTableFull, errors.Cause(err))
	assert.Equal(t, 2, pgr.numPages)
}

func TestPagerPastEndOfFile(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()
	path := dir.Join("test.db")

	pgr := newTestPager(t, path, 10)
	p, err := pgr.allocatePage()
	assert.NilError(t, err)
	p.initLeaf()
	_, err = pgr.getPage(1)
	assert.Equal(t, ErrCorruption, errors.Cause(err))
	assert.NilError(t, pgr.close())

	pgr = newTestPager(t, path, 10)
	_, err = pgr.getPage(5)
	assert.Equal(t, ErrCorruption, errors.Cause(err))
	assert.Equal(t, 1, pgr.numPages)
	assert.NilError(t, pgr.close())

	info, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Equal(t, int64(pageSize), info.Size())
}

func TestPagerPartialFile(t *testing.T) {
	dir := fs.NewDir(t, "pager", fs.WithFile("test.db", "not a whole page"))
	defer dir.Remove()

	_, err := openFile(dir.Join("test.db"))
	assert.Equal(t, ErrCorruption, errors.Cause(err))
}

func TestPagerFlushUncached(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()

	pgr := newTestPager(t, dir.Join("test.db"), 2)
	defer pgr.close()
	assert.Equal(t, ErrBounds, errors.Cause(pgr.flush(1)))
}

func TestPagerMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := newPagerMetrics(reg)
	assert.NilError(t, err)
	_, err = newPagerMetrics(reg)
	assert.ErrorContains(t, err, "duplicate metrics collector registration")
	m.unregister(reg)
	_, err = newPagerMetrics(reg)
	assert.NilError(t, err)
}

type failingSink struct {
	Sink
	closed bool
}

func (s *failingSink) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.New("disk on fire")
}

func (s *failingSink) Close() error {
	s.closed = true
	return s.Sink.Close()
}

func TestPagerCloseReportsWriteErrors(t *testing.T) {
	dir := fs.NewDir(t, "pager")
	defer dir.Remove()

	file, err := openFile(dir.Join("test.db"))
	assert.NilError(t, err)
	sink := &failingSink{Sink: file.sink}
	file.sink = sink
	metrics, err := newPagerMetrics(nil)
	assert.NilError(t, err)
	pgr, err := newPager(file, 4, zap.NewNop(), metrics)
	assert.NilError(t, err)

	p, err := pgr.allocatePage()
	assert.NilError(t, err)
	p.initLeaf()
	err = pgr.close()
	assert.ErrorContains(t, err, "write page 0")
	assert.ErrorContains(t, err, "disk on fire")
	assert.Assert(t, sink.closed)
	assert.Assert(t, p.dirty)
}
