package db

import (
	"sort"

	"github.com/pkg/errors"
)

// Leaf node layout.
const (
	leafNodeNumCellsSize   = 4
	leafNodeNumCellsOffset = commonNodeHeaderSize
	leafNodeHeaderSize     = commonNodeHeaderSize + leafNodeNumCellsSize

	leafNodeKeySize       = 4
	leafNodeKeyOffset     = 0
	leafNodeValueSize     = rowSize
	leafNodeValueOffset   = leafNodeKeyOffset + leafNodeKeySize
	leafNodeCellSize      = leafNodeKeySize + leafNodeValueSize
	leafNodeSpaceForCells = pageSize - leafNodeHeaderSize
	leafNodeMaxCells      = leafNodeSpaceForCells / leafNodeCellSize

	leafNodeRightSplitCount = (leafNodeMaxCells + 1) / 2
	leafNodeLeftSplitCount  = (leafNodeMaxCells + 1) - leafNodeRightSplitCount
)

// Internal node layout.
const (
	internalNodeNumKeysSize      = 4
	internalNodeNumKeysOffset    = commonNodeHeaderSize
	internalNodeRightChildSize   = 4
	internalNodeRightChildOffset = internalNodeNumKeysOffset + internalNodeNumKeysSize
	internalNodeHeaderSize       = commonNodeHeaderSize + internalNodeNumKeysSize + internalNodeRightChildSize

	internalNodeChildSize = 4
	internalNodeKeySize   = 4
	internalNodeCellSize  = internalNodeChildSize + internalNodeKeySize

	// Far below what fits in a page.
	internalNodeMaxKeys = 3
)

func (p *page) initLeaf() {
	p.setNodeType(nodeLeaf)
	p.setRoot(false)
	p.setParent(0)
	p.setLeafNumCells(0)
}

func (p *page) initInternal() {
	p.setNodeType(nodeInternal)
	p.setRoot(false)
	p.setParent(0)
	p.setInternalNumKeys(0)
	p.setInternalRightChild(invalidPageID)
}

// validate checks the header of a page that is about to be used as a tree node.
func (p *page) validate() error {
	if t := p.nodeType(); t != nodeLeaf && t != nodeInternal {
		return errors.Wrapf(ErrCorruption, "page %d: invalid node type %d", p.id, t)
	}
	if r := p.buf[isRootOffset]; r > 1 {
		return errors.Wrapf(ErrCorruption, "page %d: invalid root flag %d", p.id, r)
	}
	if p.isRoot() != (p.id == rootPageID) {
		return errors.Wrapf(ErrCorruption, "page %d: root flag is %t", p.id, p.isRoot())
	}
	switch p.nodeType() {
	case nodeLeaf:
		if n := p.leafNumCells(); n > leafNodeMaxCells {
			return errors.Wrapf(ErrCorruption, "page %d: leaf has %d cells, limit is %d", p.id, n, leafNodeMaxCells)
		}
	case nodeInternal:
		n := p.internalNumKeys()
		if n > internalNodeMaxKeys {
			return errors.Wrapf(ErrCorruption, "page %d: internal node has %d keys, limit is %d", p.id, n, internalNodeMaxKeys)
		}
		if p.internalRightChild() == invalidPageID {
			return errors.Wrapf(ErrCorruption, "page %d: internal node has no right child", p.id)
		}
		for i := 0; i <= n; i++ {
			if id := p.rawInternalChild(i); id == p.id || id == rootPageID {
				return errors.Wrapf(ErrCorruption, "page %d: child %d points at page %d", p.id, i, id)
			}
		}
	}
	return nil
}

// rawInternalChild returns child i without checking it.
func (p *page) rawInternalChild(i int) pageID {
	if i == p.internalNumKeys() {
		return p.internalRightChild()
	}
	return pageID(p.uint32At(internalCellOffset(i)))
}

func (p *page) isLeaf() bool {
	return p.nodeType() == nodeLeaf
}

func (p *page) leafNumCells() int {
	return int(p.uint32At(leafNodeNumCellsOffset))
}

func (p *page) setLeafNumCells(n int) {
	p.putUint32(leafNodeNumCellsOffset, uint32(n))
}

func leafCellOffset(i int) int {
	return leafNodeHeaderSize + i*leafNodeCellSize
}

func (p *page) leafCell(i int) []byte {
	off := leafCellOffset(i)
	return p.buf[off : off+leafNodeCellSize]
}

func (p *page) setLeafCell(i int, cell []byte) {
	copy(p.leafCell(i), cell)
	p.dirty = true
}

func (p *page) leafKey(i int) uint32 {
	return p.uint32At(leafCellOffset(i) + leafNodeKeyOffset)
}

func (p *page) leafValue(i int) []byte {
	off := leafCellOffset(i) + leafNodeValueOffset
	return p.buf[off : off+leafNodeValueSize]
}

// leafFind returns the index of key, or the index it would be inserted at.
func (p *page) leafFind(key uint32) int {
	lo, hi := 0, p.leafNumCells()
	for lo != hi {
		mid := (lo + hi) / 2
		k := p.leafKey(mid)
		switch {
		case key == k:
			return mid
		case key < k:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return lo
}

// leafInsertCell shifts cells at and after i one slot right and writes cell at i.
func (p *page) leafInsertCell(i int, cell []byte) {
	n := p.leafNumCells()
	copy(p.buf[leafCellOffset(i+1):leafCellOffset(n+1)], p.buf[leafCellOffset(i):leafCellOffset(n)])
	p.setLeafCell(i, cell)
	p.setLeafNumCells(n + 1)
}

func (p *page) internalNumKeys() int {
	return int(p.uint32At(internalNodeNumKeysOffset))
}

func (p *page) setInternalNumKeys(n int) {
	p.putUint32(internalNodeNumKeysOffset, uint32(n))
}

func (p *page) internalRightChild() pageID {
	return pageID(p.uint32At(internalNodeRightChildOffset))
}

func (p *page) setInternalRightChild(id pageID) {
	p.putUint32(internalNodeRightChildOffset, uint32(id))
}

func internalCellOffset(i int) int {
	return internalNodeHeaderSize + i*internalNodeCellSize
}

// internalChild returns child i; i == numKeys is the right child.
func (p *page) internalChild(i int) (pageID, error) {
	n := p.internalNumKeys()
	if i < 0 || i > n {
		return 0, errors.Wrapf(ErrBounds, "page %d: child %d of %d", p.id, i, n)
	}
	id := p.rawInternalChild(i)
	if id == invalidPageID {
		return 0, errors.Wrapf(ErrCorruption, "page %d: child %d is unset", p.id, i)
	}
	return id, nil
}

func (p *page) setInternalChild(i int, id pageID) {
	p.putUint32(internalCellOffset(i), uint32(id))
}

func (p *page) internalKey(i int) uint32 {
	return p.uint32At(internalCellOffset(i) + internalNodeChildSize)
}

func (p *page) setInternalKey(i int, key uint32) {
	p.putUint32(internalCellOffset(i)+internalNodeChildSize, key)
}

// internalFindChild returns the index of the first separator >= key, or
// numKeys when key is greater than every separator.
func (p *page) internalFindChild(key uint32) int {
	return sort.Search(p.internalNumKeys(), func(i int) bool {
		return p.internalKey(i) >= key
	})
}

// internalIndexOf returns the position of child in p, numKeys for the right child.
func (p *page) internalIndexOf(child pageID) (int, error) {
	n := p.internalNumKeys()
	if p.internalRightChild() == child {
		return n, nil
	}
	for i := 0; i < n; i++ {
		if pageID(p.uint32At(internalCellOffset(i))) == child {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrCorruption, "page %d is not a child of page %d", child, p.id)
}

// internalEntries returns the children of p and the separators of all but
// the last child.
func (p *page) internalEntries() ([]pageID, []uint32, error) {
	n := p.internalNumKeys()
	children := make([]pageID, 0, n+2)
	keys := make([]uint32, 0, n+1)
	for i := 0; i <= n; i++ {
		id, err := p.internalChild(i)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, id)
		if i < n {
			keys = append(keys, p.internalKey(i))
		}
	}
	return children, keys, nil
}

// setInternalEntries overwrites the body of p. len(children) must be len(keys)+1.
func (p *page) setInternalEntries(children []pageID, keys []uint32) {
	n := len(keys)
	for i := 0; i < n; i++ {
		p.setInternalChild(i, children[i])
		p.setInternalKey(i, keys[i])
	}
	p.setInternalNumKeys(n)
	p.setInternalRightChild(children[n])
}
