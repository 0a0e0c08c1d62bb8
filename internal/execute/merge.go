package execute

import (
	"sort"
	"strings"

	"github.com/docfmt/docfmt/internal/plan"
)

func mergeable(t plan.ChangeType) bool {
	return t == plan.TypeMixedTypography || t == plan.TypePunctuationSpacing
}

// FontOverrides, when non-empty, wins over the merged items' own font
// choices. Callers supply it at apply time.
type FontOverrides struct {
	ChineseFont string
	EnglishFont string
}

// MergeTypographyItems collapses the mixed-typography and punctuation-spacing
// items into a single pass when both are selected, since each rewrites
// paragraph text and running them separately would touch the same paragraphs
// twice. The merged item sits at the first merged position, carries the
// union of the indices, every boolean option OR-ed together, the first
// non-empty font choices unless overridden, and data.mergedChangeIds naming
// its sources.
func MergeTypographyItems(items []plan.Item, fonts FontOverrides) []plan.Item {
	var group []plan.Item
	for _, it := range items {
		if mergeable(it.Type) {
			group = append(group, it)
		}
	}
	if len(group) < 2 {
		return items
	}

	merged := group[0].Clone()
	merged.Type = plan.TypeMixedTypography
	var ids []string
	indexSet := map[int]bool{}
	for _, it := range group {
		ids = append(ids, it.ID)
		for _, idx := range it.ParagraphIndices {
			indexSet[idx] = true
		}
		for k, v := range it.Data {
			switch cur := merged.Data[k].(type) {
			case bool:
				if b, ok := v.(bool); ok {
					merged.Data[k] = cur || b
				}
			case string:
				if cur == "" {
					merged.Data[k] = v
				}
			case nil:
				merged.Data[k] = v
			}
		}
		merged.RequiresContentChange = merged.RequiresContentChange || it.RequiresContentChange
	}
	merged.ID = strings.Join(ids, "+")
	merged.Title = "Normalize typography and punctuation"
	merged.ParagraphIndices = make([]int, 0, len(indexSet))
	for idx := range indexSet {
		merged.ParagraphIndices = append(merged.ParagraphIndices, idx)
	}
	sort.Ints(merged.ParagraphIndices)
	merged.Data["mergedChangeIds"] = ids
	if fonts.ChineseFont != "" {
		merged.Data["chineseFont"] = fonts.ChineseFont
	}
	if fonts.EnglishFont != "" {
		merged.Data["englishFont"] = fonts.EnglishFont
	}

	out := make([]plan.Item, 0, len(items)-len(group)+1)
	placed := false
	for _, it := range items {
		if !mergeable(it.Type) {
			out = append(out, it)
			continue
		}
		if !placed {
			out = append(out, merged)
			placed = true
		}
	}
	return out
}
