package render

import (
	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

var (
	treeRootStyle = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	folderStyle   = lipgloss.NewStyle().Foreground(ColorYellow)
)

// ContentTree converts a partition content tree into a printable lipgloss tree.
// Folders are suffixed with a slash.
func ContentTree(root interpreter.TreeNode) *tree.Tree {
	t := tree.Root(root.Name).RootStyle(treeRootStyle)
	addChildren(t, root.Children)
	return t
}

func addChildren(t *tree.Tree, children []interpreter.TreeNode) {
	t.Enumerator(tree.RoundedEnumerator)
	for _, child := range children {
		if !child.IsFolder() {
			t.Child(child.Name)
			continue
		}
		sub := tree.Root(folderStyle.Render(child.Name + "/"))
		addChildren(sub, child.Children)
		t.Child(sub)
	}
}
