package db

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// TreeNode describes one node of the B-tree for visualisation. For internal
// nodes Keys[i] is the separator of Children[i]; the last child has none.
type TreeNode struct {
	Page     uint32
	Type     string
	Root     bool
	Keys     []uint32
	Children []*TreeNode
}

// Size is the number of cells of a leaf or the number of keys of an internal node.
func (n *TreeNode) Size() int {
	return len(n.Keys)
}

// Tree reads the whole tree starting at the root.
func (tbl *Table) Tree() (*TreeNode, error) {
	return tbl.treeNode(tbl.rootPageID, 0)
}

func (tbl *Table) treeNode(id pageID, depth int) (*TreeNode, error) {
	if depth > tbl.pager.maxPages {
		return nil, errors.Wrapf(ErrCorruption, "tree below page %d is deeper than the page limit", id)
	}
	p, err := tbl.pager.node(id)
	if err != nil {
		return nil, err
	}
	node := &TreeNode{
		Page: uint32(id),
		Type: p.nodeType().String(),
		Root: p.isRoot(),
	}
	if p.isLeaf() {
		for i := 0; i < p.leafNumCells(); i++ {
			node.Keys = append(node.Keys, p.leafKey(i))
		}
		return node, nil
	}
	children, keys, err := p.internalEntries()
	if err != nil {
		return nil, err
	}
	node.Keys = keys
	for _, child := range children {
		c, err := tbl.treeNode(child, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}
	return node, nil
}

// WriteTree prints the tree with two spaces of indentation per level.
func (tbl *Table) WriteTree(w io.Writer) error {
	root, err := tbl.Tree()
	if err != nil {
		return err
	}
	var sb strings.Builder
	writeTreeNode(&sb, root, 0)
	_, err = io.WriteString(w, sb.String())
	return err
}

func writeTreeNode(sb *strings.Builder, n *TreeNode, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(sb, "%s- %s (size %d)\n", indent, n.Type, n.Size())
	if n.Type == nodeLeaf.String() {
		for _, k := range n.Keys {
			fmt.Fprintf(sb, "%s  - %d\n", indent, k)
		}
		return
	}
	for i, child := range n.Children {
		writeTreeNode(sb, child, level+1)
		if i < len(n.Keys) {
			fmt.Fprintf(sb, "%s  - key %d\n", indent, n.Keys[i])
		}
	}
}

// Constant is a named size of the on-disk format.
type Constant struct {
	Name  string
	Value int
}

// Constants returns the sizes that define the file format.
func Constants() []Constant {
	return []Constant{
		{"ROW_SIZE", rowSize},
		{"COMMON_NODE_HEADER_SIZE", commonNodeHeaderSize},
		{"LEAF_NODE_HEADER_SIZE", leafNodeHeaderSize},
		{"LEAF_NODE_CELL_SIZE", leafNodeCellSize},
		{"LEAF_NODE_SPACE_FOR_CELLS", leafNodeSpaceForCells},
		{"LEAF_NODE_MAX_CELLS", leafNodeMaxCells},
		{"INTERNAL_NODE_HEADER_SIZE", internalNodeHeaderSize},
		{"INTERNAL_NODE_CELL_SIZE", internalNodeCellSize},
		{"INTERNAL_NODE_MAX_KEYS", internalNodeMaxKeys},
		{"PAGE_SIZE", pageSize},
	}
}

// WriteConstants writes Constants as a properties document.
func WriteConstants(w io.Writer) error {
	p := properties.NewProperties()
	for _, c := range Constants() {
		if _, _, err := p.Set(c.Name, strconv.Itoa(c.Value)); err != nil {
			return err
		}
	}
	_, err := p.Write(w, properties.UTF8)
	return err
}
