package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/emicklei/dot"
	"github.com/olekukonko/tablewriter"

	"github.com/yashagw/selopt/internal/plan"
)

// Explain writes one row per node of the plan rooted at root, in
// evaluation order, with children indented under their parent.
func Explain(w io.Writer, space *plan.Space, root *plan.Node) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"node", "mask", "atoms", "selectivity", "cost", "form"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	err := space.Walk(root.Mask, func(n *plan.Node, depth int) error {
		table.Append([]string{
			strings.Repeat("  ", depth) + nodeName(n),
			n.Mask.String(),
			fmt.Sprint(n.Atoms()),
			Number(n.Selectivity),
			Number(n.Cost),
			form(n),
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()

	first := space.LeftmostLeaf(root.Mask)
	_, err = fmt.Fprintf(w, "first term: %s (selectivity %s)\n", Term(first), Number(first.Selectivity))
	return err
}

// DOT renders the plan rooted at root as a Graphviz digraph.
func DOT(space *plan.Space, root *plan.Node) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")
	var build func(n *plan.Node) dot.Node
	build = func(n *plan.Node) dot.Node {
		gn := g.Node(n.Mask.String())
		if n.IsLeaf() {
			gn.Attr("shape", "box")
			gn.Label(fmt.Sprintf("%s\np=%s cost=%s\n%s", Term(n), Number(n.Selectivity), Number(n.Cost), form(n)))
			return gn
		}
		gn.Label(fmt.Sprintf("&&\np=%s cost=%s", Number(n.Selectivity), Number(n.Cost)))
		g.Edge(gn, build(space.Node(n.Left())), "left")
		g.Edge(gn, build(space.Node(n.Right())), "right")
		return gn
	}
	build(root)
	return g.String()
}

func nodeName(n *plan.Node) string {
	if n.IsLeaf() {
		return Term(n)
	}
	return "&&"
}

func form(n *plan.Node) string {
	switch {
	case !n.IsLeaf():
		return "branching-and"
	case n.NoBranch():
		return "no-branch"
	default:
		return "logical-and"
	}
}
