// Package execute runs an approved change plan against a document, handling
// ordering, typography-item merging and index remapping after deletions.
package execute

import "sort"

// RemapIndicesAfterDeletion shifts paragraph indices into the index space
// that results from deleting the given paragraphs. Each surviving index is
// reduced by the number of deleted indices below it; indices that were
// themselves deleted are dropped. The result is sorted and de-duplicated.
func RemapIndicesAfterDeletion(indices, deleted []int) []int {
	del := append([]int(nil), deleted...)
	sort.Ints(del)

	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		// prefix count of deletions at or below idx
		pos := sort.SearchInts(del, idx)
		if pos < len(del) && del[pos] == idx {
			continue
		}
		out = append(out, idx-pos)
	}
	sort.Ints(out)
	return dedupeSorted(out)
}

func dedupeSorted(xs []int) []int {
	out := xs[:0]
	for i, x := range xs {
		if i > 0 && x == xs[i-1] {
			continue
		}
		out = append(out, x)
	}
	return out
}
