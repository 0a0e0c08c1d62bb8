package execute

import "github.com/docfmt/docfmt/internal/plan"

// OrderForExecution returns the items with every structural item moved to
// the end. The partition is stable: relative order within each group is
// preserved, so style items always run against valid indices before any
// paragraph is deleted.
func OrderForExecution(items []plan.Item) []plan.Item {
	out := make([]plan.Item, 0, len(items))
	var structural []plan.Item
	for _, it := range items {
		if it.Type.Structural() {
			structural = append(structural, it)
			continue
		}
		out = append(out, it)
	}
	return append(out, structural...)
}
