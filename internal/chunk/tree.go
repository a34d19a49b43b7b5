// Package chunk splits source files into retrievable code_chunk and symbol
// candidates using tree-sitter ASTs where a grammar is available, falling
// back to header-aware splitting for Markdown and plain line splitting for
// everything else.
package chunk

// Point is a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line
	Column uint32
}

// Node is a node in a parsed AST, detached from the underlying tree-sitter
// tree so the rest of the package never imports smacker/go-tree-sitter
// directly.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Tree is a parsed AST over one file's source.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// GetContent returns the source slice a node spans.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child with the given node type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns every direct child with the given node type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, child := range n.Children {
		if child.Type == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// FindAllByType recursively finds every node with the given type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	if n.Type == nodeType {
		out = append(out, n)
	}
	for _, child := range n.Children {
		out = append(out, child.FindAllByType(nodeType)...)
	}
	return out
}

// Walk traverses the tree depth-first, calling fn for each node. Returning
// false from fn stops the walk (but not its siblings that already queued).
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
