package db

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func testCell(key uint32) []byte {
	cell := make([]byte, leafNodeCellSize)
	binary.LittleEndian.PutUint32(cell, key)
	return cell
}

func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 6, commonNodeHeaderSize)
	assert.Equal(t, 10, leafNodeHeaderSize)
	assert.Equal(t, 295, leafNodeCellSize)
	assert.Equal(t, 4086, leafNodeSpaceForCells)
	assert.Equal(t, 13, leafNodeMaxCells)
	assert.Equal(t, 7, leafNodeLeftSplitCount)
	assert.Equal(t, 7, leafNodeRightSplitCount)
	assert.Equal(t, 14, internalNodeHeaderSize)
}

func TestLeafNode(t *testing.T) {
	p := newPage(3, make([]byte, pageSize))
	p.initLeaf()
	assert.Assert(t, p.isLeaf())
	assert.Assert(t, !p.isRoot())
	assert.Equal(t, 0, p.leafNumCells())
	assert.Assert(t, p.dirty)

	for _, key := range []uint32{10, 30, 20, 5} {
		p.leafInsertCell(p.leafFind(key), testCell(key))
	}
	assert.Equal(t, 4, p.leafNumCells())
	keys := []uint32{}
	for i := 0; i < p.leafNumCells(); i++ {
		keys = append(keys, p.leafKey(i))
	}
	assert.DeepEqual(t, []uint32{5, 10, 20, 30}, keys)

	assert.Equal(t, 2, p.leafFind(20))
	assert.Equal(t, 0, p.leafFind(1))
	assert.Equal(t, 3, p.leafFind(25))
	assert.Equal(t, 4, p.leafFind(31))

	p.setParent(9)
	assert.Equal(t, pageID(9), p.parent())
	assert.Equal(t, byte(nodeLeaf), p.buf[0])
}

func TestInternalNode(t *testing.T) {
	p := newPage(4, make([]byte, pageSize))
	p.initInternal()
	assert.Equal(t, invalidPageID, p.internalRightChild())
	_, err := p.internalChild(0)
	assert.Equal(t, ErrCorruption, errors.Cause(err))

	p.setInternalEntries([]pageID{1, 2, 3}, []uint32{10, 20})
	assert.Equal(t, 2, p.internalNumKeys())
	assert.Equal(t, pageID(3), p.internalRightChild())

	child, err := p.internalChild(1)
	assert.NilError(t, err)
	assert.Equal(t, pageID(2), child)
	child, err = p.internalChild(2)
	assert.NilError(t, err)
	assert.Equal(t, pageID(3), child)
	_, err = p.internalChild(3)
	assert.Equal(t, ErrBounds, errors.Cause(err))

	assert.Equal(t, 0, p.internalFindChild(5))
	assert.Equal(t, 0, p.internalFindChild(10))
	assert.Equal(t, 1, p.internalFindChild(11))
	assert.Equal(t, 2, p.internalFindChild(21))

	i, err := p.internalIndexOf(3)
	assert.NilError(t, err)
	assert.Equal(t, 2, i)
	i, err = p.internalIndexOf(1)
	assert.NilError(t, err)
	assert.Equal(t, 0, i)
	_, err = p.internalIndexOf(8)
	assert.Equal(t, ErrCorruption, errors.Cause(err))

	children, keys, err := p.internalEntries()
	assert.NilError(t, err)
	assert.DeepEqual(t, []pageID{1, 2, 3}, children)
	assert.DeepEqual(t, []uint32{10, 20}, keys)
}

func TestValidate(t *testing.T) {
	root := newPage(rootPageID, make([]byte, pageSize))
	root.initLeaf()
	root.setRoot(true)
	assert.NilError(t, root.validate())

	p := newPage(1, make([]byte, pageSize))
	p.initLeaf()
	assert.NilError(t, p.validate())

	p.initInternal()
	p.setInternalEntries([]pageID{2, 3}, []uint32{5})
	assert.NilError(t, p.validate())

	tests := []struct {
		name  string
		setup func(p *page)
	}{
		{"bad node type", func(p *page) { p.buf[nodeTypeOffset] = 7 }},
		{"bad root flag", func(p *page) { p.buf[isRootOffset] = 2 }},
		{"root flag off the root page", func(p *page) { p.setRoot(true) }},
		{"too many cells", func(p *page) { p.setLeafNumCells(leafNodeMaxCells + 1) }},
		{"too many keys", func(p *page) {
			p.initInternal()
			p.setInternalRightChild(2)
			p.setInternalNumKeys(internalNodeMaxKeys + 1)
		}},
		{"missing right child", func(p *page) { p.initInternal() }},
		{"child is the node itself", func(p *page) {
			p.initInternal()
			p.setInternalEntries([]pageID{2, 1}, []uint32{5})
		}},
		{"child is the root", func(p *page) {
			p.initInternal()
			p.setInternalEntries([]pageID{rootPageID, 2}, []uint32{5})
		}},
		{"zero filled page", func(p *page) {
			for i := range p.buf {
				p.buf[i] = 0
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage(1, make([]byte, pageSize))
			p.initLeaf()
			tt.setup(p)
			assert.Equal(t, ErrCorruption, errors.Cause(p.validate()))
		})
	}
}
