package prompt

import (
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
	isDir    bool
}

// Tree renders paths as an indented tree. Directories come first, then
// files, each group sorted case-insensitively.
func Tree(paths []string) string {
	root := &treeNode{children: map[string]*treeNode{}, isDir: true}
	for _, p := range paths {
		parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
		node := root
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = &treeNode{name: part, children: map[string]*treeNode{}}
				node.children[part] = child
			}
			if i < len(parts)-1 {
				child.isDir = true
			}
			node = child
		}
	}

	var b strings.Builder
	writeTree(&b, root, "")
	return b.String()
}

func writeTree(b *strings.Builder, node *treeNode, prefix string) {
	entries := make([]*treeNode, 0, len(node.children))
	for _, c := range node.children {
		entries = append(entries, c)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		li, lj := strings.ToLower(entries[i].name), strings.ToLower(entries[j].name)
		if li != lj {
			return li < lj
		}
		return entries[i].name < entries[j].name
	})

	for i, entry := range entries {
		connector := "├── "
		extension := "│   "
		if i == len(entries)-1 {
			connector = "└── "
			extension = "    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(entry.name)
		if entry.isDir {
			b.WriteString("/\n")
			writeTree(b, entry, prefix+extension)
			continue
		}
		b.WriteString("\n")
	}
}
