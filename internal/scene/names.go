package scene

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName NFC-normalizes a node name. Sibling-uniqueness checks and
// canonical trace serialization both compare normalized forms, so two
// names that differ only in Unicode composition count as a collision.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// UniqueSiblingNames renames collisions among the direct children of
// parent, deterministically, by appending " (n)" with the smallest n that
// makes the name unique within the sibling scope.
//
// The external capture mechanism binds nodes by name within a sibling
// scope, so two siblings sharing a name would alias each other's motion
// tracks. This is a constraint of that mechanism, not of duplication
// itself; a capture mechanism without name binding would not need it.
//
// The first holder of a name keeps it; later siblings (in children
// order) are renamed. Repeated application is a no-op.
func (g *Graph) UniqueSiblingNames(parent Handle) {
	p := g.nodes[parent]
	if p == nil {
		return
	}
	seen := make(map[string]bool, len(p.Children))
	for _, ch := range p.Children {
		n := g.nodes[ch]
		if n == nil {
			continue
		}
		if !seen[n.Name] {
			seen[n.Name] = true
			continue
		}
		base := n.Name
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s (%d)", base, i)
			if !seen[candidate] {
				n.Name = candidate
				seen[candidate] = true
				break
			}
		}
	}
}

// UniqueNamesRecursive applies UniqueSiblingNames to parent and every
// sibling scope below it.
func (g *Graph) UniqueNamesRecursive(parent Handle) {
	g.UniqueSiblingNames(parent)
	p := g.nodes[parent]
	if p == nil {
		return
	}
	for _, ch := range p.Children {
		g.UniqueNamesRecursive(ch)
	}
}

// PathTo returns the name path of node relative to root, "" for the root
// itself, and child names joined with '/' below it. Returns ok=false if
// node is not in root's subtree.
func (g *Graph) PathTo(root, node Handle) (string, bool) {
	if root == node {
		return "", true
	}
	n := g.nodes[node]
	if n == nil {
		return "", false
	}
	parentPath, ok := g.PathTo(root, n.Parent)
	if !ok {
		return "", false
	}
	if parentPath == "" {
		return n.Name, true
	}
	return parentPath + "/" + n.Name, true
}

// ResolvePath walks a '/'-separated name path below root. The empty path
// resolves to root. Returns InvalidHandle when any segment is missing.
func (g *Graph) ResolvePath(root Handle, path string) Handle {
	if path == "" {
		return root
	}
	current := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '/' {
			continue
		}
		segment := path[start:i]
		start = i + 1
		n := g.nodes[current]
		if n == nil {
			return InvalidHandle
		}
		next := InvalidHandle
		for _, ch := range n.Children {
			if cn := g.nodes[ch]; cn != nil && cn.Name == segment {
				next = ch
				break
			}
		}
		if !next.Valid() {
			return InvalidHandle
		}
		current = next
	}
	return current
}
