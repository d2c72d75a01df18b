package db

import "github.com/pkg/errors"

// Cursor is a position in the table's leaf cells. Cursors walk the rows in
// ascending ID order and are invalidated by an Insert.
type Cursor struct {
	table      *Table
	pageID     pageID
	cell       int
	endOfTable bool
}

func tableStart(tbl *Table) (*Cursor, error) {
	c := &Cursor{table: tbl}
	leaf, err := c.descendLeftmost(tbl.rootPageID)
	if err != nil {
		return nil, err
	}
	c.pageID = leaf.id
	c.endOfTable = leaf.leafNumCells() == 0
	return c, nil
}

func (c *Cursor) descendLeftmost(id pageID) (*page, error) {
	for depth := 0; depth <= c.table.pager.maxPages; depth++ {
		p, err := c.table.pager.node(id)
		if err != nil {
			return nil, err
		}
		if p.isLeaf() {
			return p, nil
		}
		child, err := c.table.childOf(p, 0)
		if err != nil {
			return nil, err
		}
		id = child.id
	}
	return nil, errors.Wrapf(ErrCorruption, "no leaf found below page %d", id)
}

// End reports whether the cursor has moved past the last row.
func (c *Cursor) End() bool {
	return c.endOfTable
}

// Value decodes the row under the cursor.
func (c *Cursor) Value() (Row, error) {
	if c.endOfTable {
		return Row{}, ErrEndOfTable
	}
	p, err := c.table.pager.node(c.pageID)
	if err != nil {
		return Row{}, err
	}
	if c.cell >= p.leafNumCells() {
		return Row{}, errors.Wrapf(ErrBounds, "page %d: cell %d of %d", p.id, c.cell, p.leafNumCells())
	}
	return decodeRow(p.leafValue(c.cell))
}

// Advance moves the cursor to the next row. When the current leaf is
// exhausted it climbs to the first ancestor with an unvisited child to the
// right and descends to that subtree's leftmost leaf.
func (c *Cursor) Advance() error {
	if c.endOfTable {
		return nil
	}
	p, err := c.table.pager.node(c.pageID)
	if err != nil {
		return err
	}
	c.cell++
	for c.cell >= p.leafNumCells() {
		next, err := c.nextLeaf(p)
		if err != nil {
			return err
		}
		if next == nil {
			c.endOfTable = true
			return nil
		}
		p = next
		c.pageID = p.id
		c.cell = 0
	}
	return nil
}

// nextLeaf returns the leaf after leaf in key order, nil if leaf is the last.
func (c *Cursor) nextLeaf(leaf *page) (*page, error) {
	child := leaf
	for depth := 0; !child.isRoot(); depth++ {
		if depth > c.table.pager.maxPages {
			return nil, errors.Wrapf(ErrCorruption, "no root found above page %d", leaf.id)
		}
		parent, i, err := c.table.parentOf(child)
		if err != nil {
			return nil, err
		}
		if i < parent.internalNumKeys() {
			next, err := c.table.childOf(parent, i+1)
			if err != nil {
				return nil, err
			}
			return c.descendLeftmost(next.id)
		}
		child = parent
	}
	return nil, nil
}
