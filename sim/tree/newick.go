package tree

import (
	"strconv"
	"strings"
)

// Newick renders the tree in Newick format with node labels and branch
// lengths. With annotate set, every node carries its end state as a
// [&state=k] comment. The seed node has no branch length; an origin is
// written as a node with a single child. An empty tree renders as ";".
func (t *Tree) Newick(annotate bool) string {
	if t.IsEmpty() {
		return ";"
	}
	parts := make([]string, len(t.nodes))
	for _, id := range t.Postorder() {
		n := &t.nodes[id]
		var sb strings.Builder
		if !n.IsTip() {
			sb.WriteByte('(')
			for i, c := range n.Children {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(parts[c])
				parts[c] = ""
			}
			sb.WriteByte(')')
		}
		sb.WriteString(n.Label)
		if annotate {
			sb.WriteString("[&state=")
			sb.WriteString(strconv.Itoa(n.State))
			sb.WriteByte(']')
		}
		if id != t.seed {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatFloat(n.Length(), 'f', -1, 64))
		}
		parts[id] = sb.String()
	}
	return parts[t.seed] + ";"
}
