package document

import (
	"context"
	"fmt"
	"sort"
)

// ScopeKind selects how a Scope resolves to paragraph indices.
type ScopeKind string

const (
	ScopeDocument  ScopeKind = "document"
	ScopeSelection ScopeKind = "selection"
	ScopeSection   ScopeKind = "section"
	ScopeIndices   ScopeKind = "indices"
)

// Scope is the subset of a document an operation targets.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	// Selection range, inclusive paragraph positions.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
	// Section number for ScopeSection.
	Section int `json:"section,omitempty"`
	// Explicit indices for ScopeIndices.
	Indices []int `json:"indices,omitempty"`
}

// WholeDocument is the default scope.
func WholeDocument() Scope { return Scope{Kind: ScopeDocument} }

// ResolveScopeParagraphIndices resolves a scope against the live document and
// returns a sorted, deduplicated index list. Out-of-range explicit indices
// are dropped rather than failing the whole resolution.
func ResolveScopeParagraphIndices(ctx context.Context, doc Access, scope Scope) ([]int, error) {
	paras, err := doc.ListParagraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}
	n := len(paras)

	switch scope.Kind {
	case ScopeDocument, "":
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	case ScopeSelection:
		start, end := scope.Start, scope.End
		if start > end {
			start, end = end, start
		}
		if start < 0 {
			start = 0
		}
		if end >= n {
			end = n - 1
		}
		if start >= n || end < 0 {
			return nil, nil
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	case ScopeSection:
		idx, err := doc.SectionParagraphIndices(ctx, scope.Section)
		if err != nil {
			return nil, fmt.Errorf("resolve section %d: %w", scope.Section, err)
		}
		return sortedUnique(idx), nil
	case ScopeIndices:
		out := make([]int, 0, len(scope.Indices))
		for _, i := range scope.Indices {
			if i >= 0 && i < n {
				out = append(out, i)
			}
		}
		return sortedUnique(out), nil
	}
	return nil, fmt.Errorf("unknown scope kind %q", scope.Kind)
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	w := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[i-1] {
			out[w] = out[i]
			w++
		}
	}
	return out[:w]
}
