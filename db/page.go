package db

import (
	"encoding/binary"
)

const (
	pageSize = 4096

	defaultMaxPages = 100
	invalidPageID   = pageID(0xFFFFFFFF)
)

// Common node header.
const (
	nodeTypeSize         = 1
	nodeTypeOffset       = 0
	isRootSize           = 1
	isRootOffset         = nodeTypeOffset + nodeTypeSize
	parentPointerSize    = 4
	parentPointerOffset  = isRootOffset + isRootSize
	commonNodeHeaderSize = nodeTypeSize + isRootSize + parentPointerSize
)

type pageID uint32

type nodeType uint8

const (
	nodeInternal nodeType = 0
	nodeLeaf     nodeType = 1
)

func (t nodeType) String() string {
	switch t {
	case nodeInternal:
		return "internal"
	case nodeLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// page is a single page buffer owned by the pager.
type page struct {
	id    pageID
	buf   []byte
	dirty bool
}

func newPage(id pageID, buf []byte) *page {
	return &page{
		id:  id,
		buf: buf,
	}
}

func (p *page) uint32At(off int) uint32 {
	return binary.LittleEndian.Uint32(p.buf[off : off+4])
}

func (p *page) putUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[off:off+4], v)
	p.dirty = true
}

func (p *page) putByte(off int, v byte) {
	p.buf[off] = v
	p.dirty = true
}

func (p *page) nodeType() nodeType {
	return nodeType(p.buf[nodeTypeOffset])
}

func (p *page) setNodeType(t nodeType) {
	p.putByte(nodeTypeOffset, byte(t))
}

func (p *page) isRoot() bool {
	return p.buf[isRootOffset] != 0
}

func (p *page) setRoot(root bool) {
	var v byte
	if root {
		v = 1
	}
	p.putByte(isRootOffset, v)
}

func (p *page) parent() pageID {
	return pageID(p.uint32At(parentPointerOffset))
}

func (p *page) setParent(id pageID) {
	p.putUint32(parentPointerOffset, uint32(id))
}
