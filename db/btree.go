package db

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// tableFind descends from the root to the leaf that holds key.
func tableFind(tbl *Table, key uint32) (*Cursor, error) {
	id := tbl.rootPageID
	for depth := 0; depth <= tbl.pager.maxPages; depth++ {
		p, err := tbl.pager.node(id)
		if err != nil {
			return nil, err
		}
		if p.isLeaf() {
			return &Cursor{
				table:  tbl,
				pageID: id,
				cell:   p.leafFind(key),
			}, nil
		}
		child, err := tbl.childOf(p, p.internalFindChild(key))
		if err != nil {
			return nil, err
		}
		id = child.id
	}
	return nil, errors.Wrapf(ErrCorruption, "no leaf found below page %d", tbl.rootPageID)
}

// childOf returns child i of the internal node parent. The child must point
// back at parent.
func (tbl *Table) childOf(parent *page, i int) (*page, error) {
	id, err := parent.internalChild(i)
	if err != nil {
		return nil, err
	}
	child, err := tbl.pager.node(id)
	if err != nil {
		return nil, err
	}
	if child.parent() != parent.id {
		return nil, errors.Wrapf(ErrCorruption, "page %d is a child of page %d but points at page %d", id, parent.id, child.parent())
	}
	return child, nil
}

// maxKey returns the largest key stored below p.
func (tbl *Table) maxKey(p *page) (uint32, error) {
	for depth := 0; !p.isLeaf(); depth++ {
		if depth > tbl.pager.maxPages {
			return 0, errors.Wrapf(ErrCorruption, "no leaf found below page %d", p.id)
		}
		var err error
		p, err = tbl.childOf(p, p.internalNumKeys())
		if err != nil {
			return 0, err
		}
	}
	n := p.leafNumCells()
	if n == 0 {
		return 0, nil
	}
	return p.leafKey(n - 1), nil
}

func (tbl *Table) insert(row Row) error {
	if err := row.Validate(); err != nil {
		return err
	}
	c, err := tableFind(tbl, row.ID)
	if err != nil {
		return err
	}
	leaf, err := tbl.pager.node(c.pageID)
	if err != nil {
		return err
	}
	n := leaf.leafNumCells()
	if c.cell < n && leaf.leafKey(c.cell) == row.ID {
		return errors.Wrapf(ErrDuplicateKey, "key %d", row.ID)
	}

	cell := make([]byte, leafNodeCellSize)
	binary.LittleEndian.PutUint32(cell[leafNodeKeyOffset:], row.ID)
	if err := encodeRow(row, cell[leafNodeValueOffset:]); err != nil {
		return err
	}

	if n >= leafNodeMaxCells {
		return tbl.splitLeafAndInsert(leaf, c.cell, cell)
	}
	leaf.leafInsertCell(c.cell, cell)
	if c.cell == n {
		return tbl.updateSeparators(leaf)
	}
	return nil
}

// updateSeparators rewrites the separators above child after its maximum
// key grew. Right children carry no separator, so the walk climbs until it
// reaches a child that has one.
func (tbl *Table) updateSeparators(child *page) error {
	for depth := 0; !child.isRoot(); depth++ {
		if depth > tbl.pager.maxPages {
			return errors.Wrapf(ErrCorruption, "no root found above page %d", child.id)
		}
		parent, i, err := tbl.parentOf(child)
		if err != nil {
			return err
		}
		if i < parent.internalNumKeys() {
			max, err := tbl.maxKey(child)
			if err != nil {
				return err
			}
			parent.setInternalKey(i, max)
			return nil
		}
		child = parent
	}
	return nil
}

// parentOf returns the parent of child and the position of child in it.
func (tbl *Table) parentOf(child *page) (*page, int, error) {
	parent, err := tbl.pager.node(child.parent())
	if err != nil {
		return nil, 0, err
	}
	if parent.isLeaf() {
		return nil, 0, errors.Wrapf(ErrCorruption, "parent %d of page %d is a leaf", parent.id, child.id)
	}
	i, err := parent.internalIndexOf(child.id)
	if err != nil {
		return nil, 0, err
	}
	return parent, i, nil
}

// pagesNeeded counts the pages a split of the full leaf would allocate,
// following the cascade of splits through full ancestors.
func (tbl *Table) pagesNeeded(leaf *page) (int, error) {
	need := 0
	p := leaf
	for depth := 0; depth <= tbl.pager.maxPages; depth++ {
		if p.isRoot() {
			// The root's contents move into two new pages.
			return need + 2, nil
		}
		need++
		parent, _, err := tbl.parentOf(p)
		if err != nil {
			return 0, err
		}
		if parent.internalNumKeys() < internalNodeMaxKeys {
			return need, nil
		}
		p = parent
	}
	return 0, errors.Wrapf(ErrCorruption, "no root found above page %d", leaf.id)
}

func (tbl *Table) splitLeafAndInsert(old *page, cellNum int, cell []byte) error {
	need, err := tbl.pagesNeeded(old)
	if err != nil {
		return err
	}
	if free := tbl.pager.freePages(); need > free {
		return errors.Wrapf(ErrTableFull, "split needs %d pages, %d free", need, free)
	}

	n := old.leafNumCells()
	cells := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		if i == cellNum {
			cells = append(cells, cell)
		}
		cells = append(cells, append([]byte(nil), old.leafCell(i)...))
	}
	if cellNum == n {
		cells = append(cells, cell)
	}
	leftCells, rightCells := cells[:leafNodeLeftSplitCount], cells[leafNodeLeftSplitCount:]
	leftMax := binary.LittleEndian.Uint32(leftCells[len(leftCells)-1][leafNodeKeyOffset:])

	tbl.logger.Debug("splitting leaf", zap.Uint32("page", uint32(old.id)), zap.Uint32("separator", leftMax))

	if old.isRoot() {
		left, err := tbl.pager.allocatePage()
		if err != nil {
			return err
		}
		left.initLeaf()
		writeLeafCells(left, leftCells)
		right, err := tbl.pager.allocatePage()
		if err != nil {
			return err
		}
		right.initLeaf()
		writeLeafCells(right, rightCells)
		return tbl.createNewRoot(left, right, leftMax)
	}

	right, err := tbl.pager.allocatePage()
	if err != nil {
		return err
	}
	right.initLeaf()
	right.setParent(old.parent())
	writeLeafCells(old, leftCells)
	writeLeafCells(right, rightCells)
	return tbl.insertIntoParent(old, right, leftMax)
}

func writeLeafCells(p *page, cells [][]byte) {
	for i, cell := range cells {
		p.setLeafCell(i, cell)
	}
	p.setLeafNumCells(len(cells))
}

// insertIntoParent links right into the parent of left, directly after
// left, once left has been split and holds keys up to leftMax. A parent
// that overflows is split in turn, climbing until a node has room or the
// root itself is split.
func (tbl *Table) insertIntoParent(left, right *page, leftMax uint32) error {
	for {
		parent, i, err := tbl.parentOf(left)
		if err != nil {
			return err
		}
		children, keys, err := parent.internalEntries()
		if err != nil {
			return err
		}
		if i < len(keys) {
			// right now holds what used to be left's upper range.
			rightMax := keys[i]
			keys[i] = leftMax
			children = insertAt(children, i+1, right.id)
			keys = insertAt(keys, i+1, rightMax)
		} else {
			children = append(children, right.id)
			keys = append(keys, leftMax)
		}
		right.setParent(parent.id)

		if len(keys) <= internalNodeMaxKeys {
			parent.setInternalEntries(children, keys)
			return nil
		}

		// The left half keeps ceil(len/2) children; the separator of its
		// last child moves up into the grandparent.
		split := len(children) - len(children)/2
		leftChildren, rightChildren := children[:split], children[split:]
		leftKeys, rightKeys := keys[:split-1], keys[split:]
		promoted := keys[split-1]

		tbl.logger.Debug("splitting internal node", zap.Uint32("page", uint32(parent.id)), zap.Uint32("separator", promoted))

		if parent.isRoot() {
			l, err := tbl.pager.allocatePage()
			if err != nil {
				return err
			}
			l.initInternal()
			if err := tbl.fillInternal(l, leftChildren, leftKeys); err != nil {
				return err
			}
			r, err := tbl.pager.allocatePage()
			if err != nil {
				return err
			}
			r.initInternal()
			if err := tbl.fillInternal(r, rightChildren, rightKeys); err != nil {
				return err
			}
			return tbl.createNewRoot(l, r, promoted)
		}

		sibling, err := tbl.pager.allocatePage()
		if err != nil {
			return err
		}
		sibling.initInternal()
		sibling.setParent(parent.parent())
		if err := tbl.fillInternal(parent, leftChildren, leftKeys); err != nil {
			return err
		}
		if err := tbl.fillInternal(sibling, rightChildren, rightKeys); err != nil {
			return err
		}
		left, right, leftMax = parent, sibling, promoted
	}
}

// fillInternal stores the entries in p and points every child back at p.
func (tbl *Table) fillInternal(p *page, children []pageID, keys []uint32) error {
	p.setInternalEntries(children, keys)
	for _, id := range children {
		child, err := tbl.pager.getPage(id)
		if err != nil {
			return err
		}
		child.setParent(p.id)
	}
	return nil
}

// createNewRoot turns the root page into an internal node over left and
// right, which hold what the root contained before it was split.
func (tbl *Table) createNewRoot(left, right *page, separator uint32) error {
	root, err := tbl.pager.getPage(tbl.rootPageID)
	if err != nil {
		return err
	}
	root.initInternal()
	root.setRoot(true)
	root.setInternalEntries([]pageID{left.id, right.id}, []uint32{separator})
	left.setParent(root.id)
	right.setParent(root.id)
	tbl.logger.Debug("created new root",
		zap.Uint32("left", uint32(left.id)),
		zap.Uint32("right", uint32(right.id)),
		zap.Uint32("separator", separator))
	return nil
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
