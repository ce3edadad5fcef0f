// Package render turns an optimized plan into the scan loop it stands for
// and the statistics report printed for every query.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yashagw/selopt/internal/plan"
)

const (
	atomFmt = "t%d[o%d[i]]"

	branchCodeFmt = "if(%s) {\n" +
		"    answer[j++] = i;\n" +
		"}\n"
	noBranchCodeFmt = "if(%s) {\n" +
		"    answer[j] = i;\n" +
		"    j += (%s);\n" +
		"}\n"
	noBranchFlatCodeFmt = "answer[j] = i;\n" +
		"j += (%s);\n"

	doubleRule = "==================================================================\n"
	singleRule = "------------------------------------------------------------------\n"
)

// Atom renders the test of predicate i against the current row.
func Atom(i int) string {
	return fmt.Sprintf(atomFmt, i, i)
}

// Term renders a leaf as its atoms joined by the non-branching &.
func Term(n *plan.Node) string {
	atoms := n.Atoms()
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = Atom(a)
	}
	term := strings.Join(parts, " & ")
	if len(atoms) > 1 {
		return "(" + term + ")"
	}
	return term
}

// Terms renders the leaves of the plan rooted at root in evaluation order.
func Terms(space *plan.Space, root *plan.Node) []string {
	leaves := space.Leaves(root.Mask)
	terms := make([]string, len(leaves))
	for i, leaf := range leaves {
		terms[i] = Term(leaf)
	}
	return terms
}

// Code renders the body of the scan loop for the plan rooted at root.
func Code(space *plan.Space, root *plan.Node) string {
	terms := Terms(space, root)
	if !root.NoBranch() {
		return fmt.Sprintf(branchCodeFmt, strings.Join(terms, " && "))
	}
	last := terms[len(terms)-1]
	if len(terms) == 1 {
		return fmt.Sprintf(noBranchFlatCodeFmt, last)
	}
	return fmt.Sprintf(noBranchCodeFmt, strings.Join(terms[:len(terms)-1], " && "), last)
}

// Number formats v in its shortest round-trip form, keeping a ".0" on
// whole numbers so costs and selectivities always read as decimals.
func Number(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Selectivities renders the selectivities separated by spaces.
func Selectivities(selectivities []float64) string {
	parts := make([]string, len(selectivities))
	for i, s := range selectivities {
		parts[i] = Number(s)
	}
	return strings.Join(parts, " ")
}

// Statistics lays out the report for one query. The code block is
// followed by a line break of its own, so code that already ends in one
// leaves a blank line before the rule.
func Statistics(selectivities []float64, code string, cost float64) string {
	var b strings.Builder
	b.WriteString(doubleRule)
	b.WriteString(Selectivities(selectivities))
	b.WriteString("\n")
	b.WriteString(singleRule)
	b.WriteString(code)
	b.WriteString("\n")
	b.WriteString(singleRule)
	fmt.Fprintf(&b, "cost: %s\n", Number(cost))
	b.WriteString(doubleRule)
	return b.String()
}

// Report renders the statistics report of the plan rooted at root.
func Report(selectivities []float64, space *plan.Space, root *plan.Node) string {
	return Statistics(selectivities, Code(space, root), root.Cost)
}
