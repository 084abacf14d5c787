package render

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/xlab/treeprint"
)

// durationBand colors a node's time the way a profiler's terminal
// output draws attention to the expensive end of its tree: red for a
// span at or above the promotion threshold, yellow for one merely
// long, plain otherwise.
func durationBand(ms int64, thresholdMs, warnMs int64, colorize bool) string {
	label := fmt.Sprintf("%dms", ms)
	if !colorize {
		return label
	}
	switch {
	case ms >= thresholdMs:
		return color.RedString(label)
	case ms >= warnMs:
		return color.YellowString(label)
	default:
		return label
	}
}

// WriteASCII renders nodes as an indented tree to w, colorizing
// durations when w is a terminal. thresholdMs/warnMs control which
// band a node's time falls into.
func WriteASCII(w io.Writer, nodes []*Node, thresholdMs, warnMs int64) error {
	colorize := false
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		colorize = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, "No hot spots found")
		return err
	}

	tree := treeprint.New()
	for _, n := range nodes {
		addBranch(tree, n, thresholdMs, warnMs, colorize)
	}
	_, err := fmt.Fprintln(w, tree.String())
	return err
}

func addBranch(parent treeprint.Tree, n *Node, thresholdMs, warnMs int64, colorize bool) {
	label := fmt.Sprintf("%s (%s)", n.TerseMessage, durationBand(n.Milliseconds, thresholdMs, warnMs, colorize))
	if len(n.Children) == 0 {
		parent.AddNode(label)
		return
	}
	branch := parent.AddBranch(label)
	for _, child := range n.Children {
		addBranch(branch, child, thresholdMs, warnMs, colorize)
	}
}
